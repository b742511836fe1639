package rpcservice

import "fmt"

func errUnsupportedMessage(v interface{}) error {
	return fmt.Errorf("rpcservice: codec does not support message type %T", v)
}
