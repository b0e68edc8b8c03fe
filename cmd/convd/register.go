package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/convgraph/internal/model"
)

var registerCmd = &cobra.Command{
	Use:     "register",
	Short:   "Announce a converter or validator",
	GroupID: "registry",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registrationFromFlags(cmd)
		if err != nil {
			return err
		}
		out, err := convClient.Register(cmd.Context(), reg)
		if err != nil {
			return fmt.Errorf("registering: %w", err)
		}
		if jsonOutput {
			return printJSON(os.Stdout, out)
		}
		fmt.Printf("Registered %s\n", out.ID)
		return nil
	},
}

var modifyCmd = &cobra.Command{
	Use:     "modify <id>",
	Short:   "Replace the declared properties of a registration",
	GroupID: "registry",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registrationFromFlags(cmd)
		if err != nil {
			return err
		}
		reg.ID = args[0]
		out, err := convClient.Modify(cmd.Context(), reg)
		if err != nil {
			return fmt.Errorf("modifying %s: %w", args[0], err)
		}
		if jsonOutput {
			return printJSON(os.Stdout, out)
		}
		fmt.Printf("Modified %s\n", out.ID)
		return nil
	},
}

var unregisterCmd = &cobra.Command{
	Use:     "unregister <id>...",
	Short:   "Withdraw registrations",
	GroupID: "registry",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, id := range args {
			if err := convClient.Unregister(cmd.Context(), id); err != nil {
				return fmt.Errorf("unregistering %s: %w", id, err)
			}
			if !jsonOutput {
				fmt.Printf("Unregistered %s\n", id)
			}
		}
		if jsonOutput {
			return printJSON(os.Stdout, map[string][]string{"unregistered": args})
		}
		return nil
	},
}

func addRegistrationFlags(cmd *cobra.Command) {
	cmd.Flags().String("kind", string(model.KindConverter), "converter or validator")
	cmd.Flags().String("in", "", "input format")
	cmd.Flags().String("out", "", "output format")
	cmd.Flags().Bool("remote", false, "mark as remote (excluded from resolution)")
	cmd.Flags().String("label", "", "human readable label")
	cmd.Flags().StringArrayP("prop", "p", nil, "extra property key=value (repeatable)")
}

func registrationFromFlags(cmd *cobra.Command) (*model.Registration, error) {
	kind, _ := cmd.Flags().GetString("kind")
	in, _ := cmd.Flags().GetString("in")
	out, _ := cmd.Flags().GetString("out")
	remote, _ := cmd.Flags().GetBool("remote")
	label, _ := cmd.Flags().GetString("label")
	props, _ := cmd.Flags().GetStringArray("prop")

	reg := &model.Registration{
		Kind:      model.Kind(kind),
		InFormat:  in,
		OutFormat: out,
		Remote:    remote,
		Label:     label,
	}
	if id, err := cmd.Flags().GetString("id"); err == nil {
		reg.ID = id
	}
	for _, p := range props {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid property %q (expected key=value)", p)
		}
		if reg.Properties == nil {
			reg.Properties = make(map[string]string)
		}
		reg.Properties[k] = v
	}
	if !reg.Kind.IsValid() {
		return nil, fmt.Errorf("invalid kind %q (must be converter or validator)", kind)
	}
	return reg, nil
}

func init() {
	addRegistrationFlags(registerCmd)
	registerCmd.Flags().String("id", "", "registration ID (generated when empty)")
	addRegistrationFlags(modifyCmd)
}
