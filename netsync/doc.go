/*
Package netsync implements a concurrency safe header syncing protocol. The
SyncManager communicates with full node peers through a NetworkAdapter to
perform an initial header download, keep the local DAG in sync with the
network's tips, and relay transactions. The manager tracks per-peer quality
scores, demotes peers that serve invalid headers, and reports its progress
through a status snapshot the embedding application can poll.
*/
package netsync
