package processor

import (
	"github.com/nimbusgate/accessgraph/pkg/command"
	"github.com/nimbusgate/accessgraph/pkg/graph"
)

func toEntityDTO(e *graph.Entity) command.EntityDTO {
	meta := make(map[string]string, len(e.Metadata))
	for k, v := range e.Metadata {
		meta[k] = v
	}
	return command.EntityDTO{
		ID:       e.ID,
		Variant:  e.Variant,
		Name:     e.Name,
		Metadata: meta,
		Parents:  e.Parents(),
		Children: e.Children(),
	}
}

func toPermissionDTO(p *graph.Permission) command.PermissionDTO {
	dto := command.PermissionDTO{
		ID:       p.ID,
		EntityID: p.EntityID,
		URI:      p.URI,
		Verb:     p.Verb,
		Polarity: p.Polarity,
		Scheme:   p.Scheme,
	}
	if p.Expiry != nil {
		u := p.Expiry.Unix()
		dto.ExpiryUnix = &u
	}
	return dto
}
