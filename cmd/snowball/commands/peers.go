package commands

import (
	"fmt"
	"os"

	"github.com/mosaicnetworks/snowball/src/peers"
	"github.com/spf13/cobra"
)

var peersCount int

// NewPeersCmd produces a command which writes a peers.json file with
// sequential IDs in the data directory. Run with --load-peers to use it.
func NewPeersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peers",
		Short: "Write a peers.json file",
		RunE:  writePeers,
	}

	AddPeersFlags(cmd)

	return cmd
}

//AddPeersFlags adds flags to the peers command
func AddPeersFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _config.Snowball.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().IntVarP(&peersCount, "nodes", "n", _config.Snowball.Nodes, "Number of peers")
}

func writePeers(cmd *cobra.Command, args []string) error {
	datadir, err := cmd.Flags().GetString("datadir")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(datadir, 0700); err != nil {
		return err
	}

	peerStore := peers.NewJSONPeerSet(datadir)

	if _, err := os.Stat(peerStore.Path()); err == nil {
		return fmt.Errorf("A peers file already lives under: %s", peerStore.Path())
	}

	peerSet := peers.NewSequentialPeerSet(peersCount)
	if err := peerStore.Write(peerSet.Peers); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d peers written to %s\n", peerSet.Len(), peerStore.Path())

	return nil
}
