package main

import (
	"github.com/spf13/cobra"
)

func syncCmd(flags *globalFlags) *cobra.Command {
	var (
		model     string
		container string
		out       string
	)

	cmd := &cobra.Command{
		Use:   "sync PAGE",
		Short: "Read the form values of a page into a model",
		Long: `Sync reads the vm-value inputs of PAGE, typically a rendered page whose
form was filled in, back into the model and writes the updated model.
The output is JSON when the output file ends in .json, YAML otherwise.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, logger, err := flags.setup(cmd)
			if err != nil {
				return err
			}

			d, err := loadPage(args[0])
			if err != nil {
				return err
			}

			vm, err := loadModel(model)
			if err != nil {
				return err
			}

			el, err := containerOf(d, container)
			if err != nil {
				return err
			}

			if err := e.SyncContext(cmd.Context(), el, vm); err != nil {
				return err
			}

			w, closeFn, err := output(out, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			format := out
			if format == "" || format == "-" {
				format = model
			}

			if err := writeModel(w, format, vm); err != nil {
				closeFn()
				return err
			}

			logger.Debug("Synced", "page", args[0], "model", model)
			return closeFn()
		},
	}

	f := cmd.Flags()
	f.StringVarP(&model, "model", "m", "", "YAML or JSON model file")
	f.StringVarP(&container, "container", "c", "", "id of the container element (default: body)")
	f.StringVarP(&out, "output", "o", "", "output file (default: stdout)")
	cmd.MarkFlagRequired("model")

	return cmd
}
