package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aradsms/client_directory/internal/client_service/domain"
)

func newClientsCmd(opts *rootOptions) *cobra.Command {
	clientsCmd := &cobra.Command{
		Use:   "clients",
		Short: "Manage client records",
	}
	clientsCmd.AddCommand(
		newClientsAddCmd(opts),
		newClientsGetCmd(opts),
		newClientsSearchCmd(opts),
		newClientsDeleteCmd(opts),
		newClientsPhoneCmd(opts, "add-phone", "Add a phone number to a client"),
		newClientsPhoneCmd(opts, "remove-phone", "Remove a phone number from a client"),
	)
	return clientsCmd
}

func newClientsAddCmd(opts *rootOptions) *cobra.Command {
	var email string
	var phones []string
	cmd := &cobra.Command{
		Use:   "add <first-name> <last-name>",
		Short: "Add a new client",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := opts.initServices(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			client, err := services.Clients.AddClient(cmd.Context(), domain.ContactFields{
				FirstName:    args[0],
				LastName:     args[1],
				Email:        email,
				PhoneNumbers: phones,
			})
			if err != nil {
				return fmt.Errorf("failed to add client: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), client.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "client email")
	cmd.Flags().StringArrayVar(&phones, "phone", nil, "phone number (repeatable)")
	return cmd
}

func newClientsGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <client-id>...",
		Short: "Show one or more clients",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			services, err := opts.initServices(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			if len(ids) == 1 {
				client, found, err := services.Clients.GetClient(cmd.Context(), ids[0])
				if err != nil {
					return fmt.Errorf("failed to load client: %w", err)
				}
				if !found {
					return fmt.Errorf("client with ID=%d not found", ids[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), client.String())
				return nil
			}

			clients, err := services.Clients.GetClients(cmd.Context(), ids)
			if err != nil {
				return fmt.Errorf("failed to load clients: %w", err)
			}
			printClients(cmd.OutOrStdout(), clients)
			return nil
		},
	}
}

func newClientsSearchCmd(opts *rootOptions) *cobra.Command {
	values := make(map[domain.SearchField]*string, len(domain.SearchFields))
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search clients by field patterns (SQL ILIKE syntax, e.g. %on)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := domain.SearchFilter{}
			for field, v := range values {
				if cmd.Flags().Changed(string(field)) {
					filter[field] = *v
				}
			}

			services, err := opts.initServices(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			clients, performed, err := services.Clients.SearchClients(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("failed to search clients: %w", err)
			}
			if !performed {
				fmt.Fprintln(cmd.OutOrStdout(), "No search fields given")
				return nil
			}
			if len(clients) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No clients found")
				return nil
			}
			printClients(cmd.OutOrStdout(), clients)
			return nil
		},
	}
	for _, field := range domain.SearchFields {
		values[field] = cmd.Flags().String(string(field), "", "pattern for "+string(field))
	}
	return cmd
}

func newClientsDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <client-id>",
		Short: "Delete a client and its phone numbers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			services, err := opts.initServices(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			if err := services.Clients.DeleteClient(cmd.Context(), ids[0]); err != nil {
				return fmt.Errorf("failed to delete client: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Client %d deleted\n", ids[0])
			return nil
		},
	}
}

func newClientsPhoneCmd(opts *rootOptions, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <client-id> <phone-number>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[:1])
			if err != nil {
				return err
			}
			services, err := opts.initServices(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			change := services.Clients.AddPhoneNumber
			if use == "remove-phone" {
				change = services.Clients.DeletePhoneNumber
			}
			client, found, err := change(cmd.Context(), ids[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to change phone numbers: %w", err)
			}
			if !found {
				return fmt.Errorf("client with ID=%d not found", ids[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), client.String())
			return nil
		},
	}
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid client ID %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// printClients writes one client per line in ID order.
func printClients(w io.Writer, clients map[int64]*domain.Client) {
	ids := make([]int64, 0, len(clients))
	for id := range clients {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fmt.Fprintln(w, clients[id].String())
	}
}
