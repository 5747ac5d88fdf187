package config

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/dagnet/lightd/dagconfig"
)

// NetworkFlags holds the network configuration, that is which network is
// selected.
type NetworkFlags struct {
	Testnet bool `long:"testnet" description:"Use the test network"`
	Simnet  bool `long:"simnet" description:"Use the simulation test network"`

	activeNetParams *dagconfig.Params
}

// ResolveNetwork parses the network command line arguments and sets the
// active network parameters accordingly. It returns an error if more than
// one network was selected.
func (networkFlags *NetworkFlags) ResolveNetwork(parser *flags.Parser) error {
	// The default network is mainnet.
	networkFlags.activeNetParams = &dagconfig.MainnetParams

	// Multiple networks can't be selected simultaneously.
	numNets := 0
	if networkFlags.Testnet {
		numNets++
		networkFlags.activeNetParams = &dagconfig.TestnetParams
	}
	if networkFlags.Simnet {
		numNets++
		networkFlags.activeNetParams = &dagconfig.SimnetParams
	}
	if numNets > 1 {
		err := errors.New("multiple network parameters (testnet, simnet) " +
			"cannot be used together. Please choose only one network")
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return err
	}
	return nil
}

// NetParams returns the parameters of the selected network.
func (networkFlags *NetworkFlags) NetParams() *dagconfig.Params {
	return networkFlags.activeNetParams
}
