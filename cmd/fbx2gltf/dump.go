package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/binzume/fbx2gltf/fbx"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <input.fbx>",
	Short: "Print the raw FBX node tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		full, _ := cmd.Flags().GetBool("full")
		r, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer r.Close()
		root, version, err := fbx.ParseNodes(r)
		if err != nil {
			return err
		}
		w := bufio.NewWriter(cmd.OutOrStdout())
		fmt.Fprintf(w, "; FBX %d\n", version)
		for _, n := range root.Children {
			n.Dump(w, 0, full)
		}
		return w.Flush()
	},
}

func init() {
	dumpCmd.Flags().Bool("full", false, "print arrays of any length")
	rootCmd.AddCommand(dumpCmd)
}
