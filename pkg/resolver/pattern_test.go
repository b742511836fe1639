package resolver

import "testing"

func TestMatchPatternExact(t *testing.T) {
	matched, score, _ := matchPattern("/api/orders", "/api/orders")
	if !matched {
		t.Fatal("expected exact match")
	}
	if score != 2*weightLiteral {
		t.Fatalf("expected exact score %d, got %d", 2*weightLiteral, score)
	}
}

func TestMatchPatternTailWildcard(t *testing.T) {
	matched, _, _ := matchPattern("/api/**", "/api/orders/5")
	if !matched {
		t.Fatal("expected ** to match multiple trailing segments")
	}

	matched, _, _ = matchPattern("/api/**", "/api")
	if matched {
		t.Fatal("** requires at least one trailing segment")
	}
}

func TestMatchPatternStarSingleSegment(t *testing.T) {
	matched, _, _ := matchPattern("/api/*", "/api/orders")
	if !matched {
		t.Fatal("expected * to match a single segment")
	}
	matched, _, _ = matchPattern("/api/*", "/api/orders/5")
	if matched {
		t.Fatal("* must not match multiple segments")
	}
}

func TestMatchPatternParamBinding(t *testing.T) {
	matched, _, bindings := matchPattern("/api/{id}/orders", "/api/5/orders")
	if !matched {
		t.Fatal("expected param match")
	}
	if bindings["id"] != "5" {
		t.Fatalf("expected binding id=5, got %q", bindings["id"])
	}
}

func TestLiteralOutranksParamAtSamePosition(t *testing.T) {
	_, literalScore, _ := matchPattern("/api/orders", "/api/orders")
	_, paramScore, _ := matchPattern("/api/{seg}", "/api/orders")
	if literalScore <= paramScore {
		t.Fatalf("expected literal (%d) to outrank param (%d)", literalScore, paramScore)
	}
}

func TestLongerPrefixOutranksShorterPrefix(t *testing.T) {
	_, longer, _ := matchPattern("/api/orders/**", "/api/orders/5")
	_, shorter, _ := matchPattern("/api/**", "/api/orders/5")
	if longer <= shorter {
		t.Fatalf("expected longer prefix (%d) to outrank shorter prefix (%d)", longer, shorter)
	}
}

func TestExactOutranksPrefix(t *testing.T) {
	_, exact, _ := matchPattern("/api/orders", "/api/orders")
	_, prefix, _ := matchPattern("/api/**", "/api/orders")
	if exact <= prefix {
		t.Fatalf("expected exact (%d) to outrank tail-wildcard prefix (%d)", exact, prefix)
	}
}
