package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	custdto "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/customer/dto"
	custmodels "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/customer/models"
	custsvc "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/customer/service"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/registry"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newProbeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Probe the configured store and report availability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, closeFn, err := opts.openGateway(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			probeErr := gw.Probe(cmd.Context())
			if err := writeJSON(cmd.OutOrStdout(), gw.Health(cmd.Context())); err != nil {
				return err
			}
			if probeErr != nil {
				return fmt.Errorf("store %s is unavailable: %w", gw.Backend(), probeErr)
			}
			return nil
		},
	}
}

// collectionEntry là một dòng trong bảng logic -> vật lý
type collectionEntry struct {
	Logical  string `json:"logical" yaml:"logical"`
	Physical string `json:"physical" yaml:"physical"`
}

func newCollectionsCommand() *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "Print the logical to physical collection table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var entries []collectionEntry
			for _, logical := range registry.AllCollections() {
				physical, err := registry.ResolveCollection(logical)
				if err != nil {
					return err
				}
				entries = append(entries, collectionEntry{Logical: string(logical), Physical: physical})
			}

			out := cmd.OutOrStdout()
			if asYAML {
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(map[string][]collectionEntry{"collections": entries}); err != nil {
					return err
				}
				return enc.Close()
			}
			for _, e := range entries {
				if _, err := fmt.Fprintf(out, "%-18s %s\n", e.Logical, e.Physical); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print as YAML")
	return cmd
}

func newListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <collection>",
		Short: "Print every record of a logical collection, newest first when the store allows it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, closeFn, err := opts.openGateway(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			records, err := gw.GetAll(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), records)
		},
	}
}

func newEnsureCustomerCommand(opts *RootOptions) *cobra.Command {
	var (
		data custdto.CustomerData
		via  string
	)
	cmd := &cobra.Command{
		Use:   "ensure-customer",
		Short: "Return the customer with the given phone, registering it if absent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, closeFn, err := opts.openGateway(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			customer, err := custsvc.NewDedupCoordinator(gw).CreateIfAbsent(cmd.Context(), data, custmodels.Provenance(via))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), customer)
		},
	}
	cmd.Flags().StringVar(&data.Name, "name", "", "customer name")
	cmd.Flags().StringVar(&data.Phone, "phone", "", "customer phone (dedup key)")
	cmd.Flags().StringVar(&data.Email, "email", "", "customer email")
	cmd.Flags().StringVar(&data.Address, "address", "", "customer address")
	cmd.Flags().StringVar(&via, "via", string(custmodels.ProvenanceServiceOrder), "provenance: serviceOrder | saleOrder")
	return cmd
}

func newDuplicatesCommand(opts *RootOptions) *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Report customers that share a phone key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, closeFn, err := opts.openGateway(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			groups, err := custsvc.FindDuplicates(cmd.Context(), gw)
			if err != nil {
				return err
			}
			if asYAML {
				return yaml.NewEncoder(cmd.OutOrStdout()).Encode(groups)
			}
			if groups == nil {
				groups = []custsvc.DuplicateGroup{}
			}
			return writeJSON(cmd.OutOrStdout(), groups)
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print as YAML")
	return cmd
}
