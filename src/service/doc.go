// Package service serves the state of a running simulation over HTTP.
//
//  GET /stats               router counters and the stats of every node
//  GET /nodes/{id}          the mempool of one node
//  GET /decisions[?tx=hash] the decision journal
package service
