package cmd

import (
	"github.com/sloonz/ibak/lib"

	"github.com/sirupsen/logrus"
)

type optionsBuilder struct {
	Options *ibak.Options
	Store   *ibak.MetaStore
	Error   error
}

func newOptionsBuilder(options *ibak.Options, err error) *optionsBuilder {
	return &optionsBuilder{Options: options, Error: err}
}

func (o *optionsBuilder) WithStore() *optionsBuilder {
	if o.Error == nil {
		o.Store, o.Error = ibak.OpenStore(o.Options)
	}
	return o
}

func (o *optionsBuilder) FatalOnError() *optionsBuilder {
	if o.Error != nil {
		logrus.Fatal(o.Error)
	}
	return o
}

// openStore resolves the global --output flag (against presets) and loads the
// registry. Any failure here, including a corrupt state file, is fatal to the
// whole invocation.
func openStore() *ibak.MetaStore {
	return newOptionsBuilder(ibak.ParseStoreOptions(output, presets)).
		WithStore().
		FatalOnError().
		Store
}
