package wallet

import "ots/go-core/internal/chain"

// Engine is the address and transaction collaborator. It receives the key
// set for the duration of one call and must not retain it.
type Engine interface {
	Address(keys *Keys, net chain.Network, account, index uint32) (string, error)
	ValidAddress(addr string, net chain.Network) bool
	ImportOutputs(keys *Keys, outputs []byte) (int, error)
	ExportKeyImages(keys *Keys) ([]byte, error)
	DescribeTransaction(keys *Keys, unsigned []byte) (TxDescription, error)
	SignTransaction(keys *Keys, unsigned []byte) ([]byte, error)
}
