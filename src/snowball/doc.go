// Package snowball assembles a complete simulated network: a peer set, one
// node per peer, the router that carries their messages, the decision
// journal and the optional HTTP service.
//
// Typical usage:
//
//  conf := config.NewDefaultConfig()
//  sim := snowball.NewSimulation(conf)
//  if err := sim.Init(); err != nil { ... }
//  sim.Run()
//  defer sim.Shutdown()
//
//  tx := consensus.NewTransaction(1, 3)
//  sim.Inject(0, tx)
//  decisions, err := sim.WaitFinal(tx.Hash(), conf.Timeout)
package snowball
