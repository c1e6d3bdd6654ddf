package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Carmen-Shannon/oxy-shadertoy/config"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/reconciler"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/renderer"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/slot"
)

type paramEntry struct {
	Slot    int    `json:"slot"`
	Group   string `json:"group"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Label   string `json:"label"`
	Hint    string `json:"hint,omitempty"`
	Value   string `json:"value"`
	Default string `json:"default"`
	Min     string `json:"min,omitempty"`
	Max     string `json:"max,omitempty"`
}

type inputEntry struct {
	Channel int    `json:"channel"`
	Label   string `json:"label"`
	Hint    string `json:"hint,omitempty"`
	Filter  string `json:"filter"`
	Wrap    string `json:"wrap"`
}

type paramsReport struct {
	Params   []paramEntry   `json:"params"`
	Inputs   []inputEntry   `json:"inputs"`
	BBox     string         `json:"bbox"`
	Mouse    bool           `json:"mouse"`
	Dropped  int            `json:"dropped,omitempty"`
	Renderer *renderer.Info `json:"renderer,omitempty"`
}

func newParamsCommand(opts *options) *cobra.Command {
	var info, asJSON bool
	cmd := &cobra.Command{
		Use:   "params",
		Short: "List the parameters and input channels a shader declares",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			source, err := os.ReadFile(cfg.Shader)
			if err != nil {
				return fmt.Errorf("failed to read shader: %w", err)
			}
			report, err := discoverParams(string(source), cfg)
			if err != nil {
				return fmt.Errorf("%s: %w", cfg.Shader, err)
			}

			if info {
				r := renderer.NewRenderer(renderer.BackendTypeWGPU,
					renderer.WithForceSoftwareRenderer(cfg.Software),
					renderer.WithLogger(logger),
				)
				defer r.Release()
				fragment, err := shader.NewFragmentShader("params", string(source), cfg.Channels)
				if err != nil {
					return fmt.Errorf("%s: %w", cfg.Shader, err)
				}
				if _, err := r.Compile("params", 1, fragment); err != nil {
					return fmt.Errorf("%s: %w", cfg.Shader, err)
				}
				ri := r.Info()
				report.Renderer = &ri
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return writeReport(cmd.OutOrStdout(), report)
		},
	}
	opts.addShaderFlags(cmd.Flags())
	cmd.Flags().BoolVar(&info, "info", false, "compile the shader and describe the GPU adapter")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

// discoverParams reconciles the shader's declarations into fresh pools and reports what a host
// would show. Only the visible fields of each slot are reported.
func discoverParams(source string, cfg config.Config) (paramsReport, error) {
	d, err := shader.Discover(source, cfg.Channels)
	if err != nil {
		return paramsReport{}, err
	}
	slots := slot.NewPool(slot.WithCapacity(cfg.Params))
	inputs := slot.NewInputPool(slot.WithChannels(cfg.Channels))
	res, err := reconciler.Reconcile(d, slots, inputs)
	if err != nil {
		return paramsReport{}, err
	}

	report := paramsReport{
		BBox:    slots.BBox().String(),
		Mouse:   slots.MouseParams(),
		Dropped: res.Dropped,
	}
	proj := slot.Project(slots, inputs)
	for _, vis := range proj.Slots {
		if !vis.Value {
			continue
		}
		snap, err := slots.Slot(vis.Index)
		if err != nil {
			return paramsReport{}, err
		}
		entry := paramEntry{
			Slot:    vis.Index,
			Group:   vis.GroupLabel,
			Name:    snap.Name,
			Type:    snap.Type.String(),
			Label:   vis.ValueLabel,
			Hint:    snap.Hint,
			Value:   snap.Value.String(),
			Default: snap.Default.String(),
		}
		if vis.Range {
			entry.Min, entry.Max = snap.Min.String(), snap.Max.String()
		}
		report.Params = append(report.Params, entry)
	}
	for _, vis := range proj.Inputs {
		if !vis.Settings {
			continue
		}
		in, err := inputs.Input(vis.Index)
		if err != nil {
			return paramsReport{}, err
		}
		report.Inputs = append(report.Inputs, inputEntry{
			Channel: vis.Index,
			Label:   vis.ClipLabel,
			Hint:    vis.ClipHint,
			Filter:  in.Filter.String(),
			Wrap:    in.Wrap.String(),
		})
	}
	return report, nil
}

func writeReport(w io.Writer, report paramsReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tNAME\tTYPE\tLABEL\tVALUE\tDEFAULT\tMIN\tMAX")
	for _, p := range report.Params {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", p.Slot, p.Name, p.Type, p.Label, p.Value, p.Default,
			dash(p.Min), dash(p.Max))
	}
	if len(report.Inputs) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "CHANNEL\tLABEL\tFILTER\tWRAP\tHINT")
		for _, in := range report.Inputs {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", in.Channel, in.Label, in.Filter, in.Wrap, dash(in.Hint))
		}
	}
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "bbox\t%s\n", report.BBox)
	fmt.Fprintf(tw, "mouse\t%t\n", report.Mouse)
	if report.Dropped > 0 {
		fmt.Fprintf(tw, "dropped\t%d\n", report.Dropped)
	}
	if r := report.Renderer; r != nil {
		fmt.Fprintf(tw, "adapter\t%s (%s, %s)\n", r.Adapter, r.Backend, r.AdapterType)
		fmt.Fprintf(tw, "driver\t%s\n", dash(r.Driver))
		fmt.Fprintf(tw, "software\t%t\n", r.Software)
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
