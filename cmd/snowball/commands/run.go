package commands

import (
	"fmt"
	"io"
	"math/rand"

	"github.com/mosaicnetworks/snowball/src/config"
	"github.com/mosaicnetworks/snowball/src/consensus"
	"github.com/mosaicnetworks/snowball/src/snowball"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//NewRunCmd returns the command that runs a simulation
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run a simulated network and inject transactions",
		PreRunE: loadConfig,
		RunE:    runSimulation,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runSimulation(cmd *cobra.Command, args []string) error {
	logger := _config.Snowball.Logger()

	engine := snowball.NewSimulation(&_config.Snowball)

	if err := engine.Init(); err != nil {
		logger.Error("Cannot initialize engine:", err)
		return err
	}

	engine.Run()
	defer engine.Shutdown()

	rng := rand.New(rand.NewSource(_config.Snowball.Seed))
	ids := engine.Peers.IDs()

	txs := make([]consensus.Transaction, 0, _config.Txs)
	for i := 0; i < _config.Txs; i++ {
		tx := consensus.NewRandomTransaction(rng)
		if _config.Payload >= 0 {
			tx = consensus.NewTransaction(uint64(i), _config.Payload)
		}

		target := ids[rng.Intn(len(ids))]
		if _config.InjectNode >= 0 {
			target = uint64(_config.InjectNode)
		}

		if err := engine.Inject(target, tx); err != nil {
			logger.WithError(err).Error("Cannot inject transaction")
			return err
		}
		txs = append(txs, tx)
	}

	out := cmd.OutOrStdout()

	for _, tx := range txs {
		decisions, err := engine.WaitFinal(tx.Hash(), _config.Snowball.Timeout)
		if err != nil {
			logger.WithError(err).WithField("tx", tx.Hash().Short()).Error("Transaction not decided")
			return err
		}
		printDecisions(out, tx, decisions)
	}

	stats := engine.Stats()
	fmt.Fprintf(out, "routed %d queries and %d responses in %d deliveries\n",
		stats.QueriesRouted, stats.ResponsesRouted, stats.Deliveries)

	return nil
}

func printDecisions(out io.Writer, tx consensus.Transaction, decisions []consensus.Decision) {
	count := map[consensus.Status]int{}
	for _, d := range decisions {
		count[d.Status]++
	}

	fmt.Fprintf(out, "%s payload=%d local=%s: %d decisions, %d %s, %d %s\n",
		tx.Hash(),
		tx.Payload,
		tx.Verify(),
		len(decisions),
		count[consensus.Valid], consensus.Valid,
		count[consensus.Invalid], consensus.Invalid,
	)
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {

	cmd.Flags().String("datadir", _config.Snowball.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.Snowball.LogLevel, "trace, debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.LogFile, "Also write logs to this file")

	// Network
	cmd.Flags().IntP("nodes", "n", _config.Snowball.Nodes, "Number of nodes")
	cmd.Flags().Bool("load-peers", _config.Snowball.LoadPeers, "Read the nodes from peers.json in datadir")
	cmd.Flags().Int64("seed", _config.Snowball.Seed, "Seed of the peer sampler and of random transactions")
	cmd.Flags().Bool("wire-encoding", _config.Snowball.WireEncoding, "Encode routed messages")

	// Protocol
	cmd.Flags().Int("k", _config.Snowball.Params.K, "Number of peers sampled per query")
	cmd.Flags().Float64("alpha", _config.Snowball.Params.Alpha, "Fraction of k that makes a quorum")
	cmd.Flags().Int("beta", _config.Snowball.Params.Beta, "Consecutive quorums needed to advance an epoch")
	cmd.Flags().Int("epochs", _config.Snowball.Params.M, "Epochs needed for finality")

	// Workload
	cmd.Flags().Int("txs", _config.Txs, "Number of transactions to inject")
	cmd.Flags().Int64("payload", _config.Payload, "Payload of injected transactions, random if negative")
	cmd.Flags().Int64("inject-node", _config.InjectNode, "Node receiving the transactions, random if negative")
	cmd.Flags().DurationP("timeout", "t", _config.Snowball.Timeout, "Time allowed for each transaction to be decided")

	// Service
	cmd.Flags().Bool("no-service", _config.Snowball.NoService, "Disable HTTP service")
	cmd.Flags().StringP("service-listen", "s", _config.Snowball.ServiceAddr, "Listen IP:Port for HTTP service")

	// Store
	cmd.Flags().Bool("store", _config.Snowball.Store, "Journal decisions in badgerDB")
	cmd.Flags().String("db", _config.Snowball.DatabaseDir, "Database directory")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.Snowball.SetDataDir(_config.Snowball.DataDir)

	_config.Snowball.SetLogger(newLogger(_config.Snowball.LogLevel, _config.LogFile))

	logFields := logrus.Fields{
		"snowball.DataDir":      _config.Snowball.DataDir,
		"snowball.Nodes":        _config.Snowball.Nodes,
		"snowball.LoadPeers":    _config.Snowball.LoadPeers,
		"snowball.Params":       _config.Snowball.Params.String(),
		"snowball.Seed":         _config.Snowball.Seed,
		"snowball.WireEncoding": _config.Snowball.WireEncoding,
		"snowball.Timeout":      _config.Snowball.Timeout,
		"snowball.Store":        _config.Snowball.Store,
		"snowball.LogLevel":     _config.Snowball.LogLevel,
		"Txs":                   _config.Txs,
		"Payload":               _config.Payload,
		"InjectNode":            _config.InjectNode,
	}

	if _config.Snowball.Store {
		logFields["snowball.DatabaseDir"] = _config.Snowball.DatabaseDir
	}

	if !_config.Snowball.NoService {
		logFields["snowball.ServiceAddr"] = _config.Snowball.ServiceAddr
	}

	_config.Snowball.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/snowball.toml (.json, .yaml also work)
	viper.SetConfigName(config.DefaultConfigFile)  // name of config file (without extension)
	viper.AddConfigPath(_config.Snowball.DataDir) // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Snowball.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Snowball.Logger().Debugf("No config file found in: %s", _config.Snowball.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}
