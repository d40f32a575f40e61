// Package config defines the configuration of a snowball simulation.
//
// Regardless of how a simulation is started, directly from Go code or from
// the command line, it uses the Config object defined in this package to store
// and forward configuration options. The command line additionally reads
// Config.DataDir for a few optional files:
//
//  snowball.toml // configuration values, overridden by flags.
//  peers.json // the membership, used when load-peers is set.
//  badger_db/ // the decision journal, used when store is set.
package config
