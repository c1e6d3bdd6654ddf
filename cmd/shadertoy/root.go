package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "shadertoy",
		Short:         "Render Shadertoy-style fragment shaders with parameters discovered from uniform annotations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.addPersistentFlags(root.PersistentFlags())

	root.AddCommand(newRenderCommand(opts), newParamsCommand(opts), newPreviewCommand(opts))
	return root
}
