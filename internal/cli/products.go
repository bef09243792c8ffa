package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"save-the-fridge/internal/model"
	"save-the-fridge/internal/notify"

	"github.com/spf13/cobra"
)

// defaultReminderDays is used when --reminder is not given.
const defaultReminderDays = 3

func newListCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List products ordered by expiry date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.application(cmd.Context())
			if err != nil {
				return err
			}
			views, err := a.Inventory.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(views) == 0 {
				fmt.Fprintln(e.out, "The fridge is empty.")
				return nil
			}

			tw := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tBRAND\tEXPIRES\tSTATUS")
			for _, v := range views {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", v.ID, displayName(v.Name), v.Brand, v.ExpiryDate, v.Status)
			}
			return tw.Flush()
		},
	}
}

func newLookupCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <barcode>",
		Short: "Look a barcode up in Open Food Facts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.application(cmd.Context())
			if err != nil {
				return err
			}
			info, err := a.Scan.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printInfo(e, info)
			return nil
		},
	}
}

func newAddCommand(e *env) *cobra.Command {
	var req model.AddProductRequest

	cmd := &cobra.Command{
		Use:   "add [barcode]",
		Short: "Add a product, looking its name up by barcode unless --name is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.application(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 1 {
				req.Barcode = args[0]
			}

			if req.Name == "" && req.Barcode != "" {
				if _, err := a.Scan.Lookup(cmd.Context(), req.Barcode); err != nil {
					fmt.Fprintf(e.errOut, "warning: %v\n", err)
				}
			}

			product, err := a.Inventory.Add(cmd.Context(), &req)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "Added #%d %s, expires %s\n", product.ID, displayName(product.Name), product.ExpiryDate)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.ExpiryDate, "expiry", "", "Expiry date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&req.ReminderDays, "reminder", defaultReminderDays, "Days before expiry to start reminding")
	cmd.Flags().StringVar(&req.Name, "name", "", "Product name")
	cmd.Flags().StringVar(&req.Brand, "brand", "", "Product brand")
	cmd.MarkFlagRequired("expiry")
	return cmd
}

func newRemoveCommand(e *env) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := e.application(cmd.Context())
			if err != nil {
				return err
			}

			view, err := a.Inventory.Get(cmd.Context(), id)
			if err != nil {
				return err
			}

			confirmed := yes
			if !confirmed {
				confirmed, err = e.confirm(fmt.Sprintf("Remove #%d %s?", id, displayName(view.Name)))
				if err != nil {
					return err
				}
			}
			if !confirmed {
				fmt.Fprintln(e.out, "Nothing removed.")
				return nil
			}

			if err := a.Inventory.Remove(cmd.Context(), id, true); err != nil {
				return err
			}
			fmt.Fprintf(e.out, "Removed #%d\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newUpdateCommand(e *env) *cobra.Command {
	var (
		name, brand, image, expiryDate string
		reminderDays                   int
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var update model.ProductUpdate
			flags := cmd.Flags()
			if flags.Changed("name") {
				update.Name = &name
			}
			if flags.Changed("brand") {
				update.Brand = &brand
			}
			if flags.Changed("image") {
				update.Image = &image
			}
			if flags.Changed("expiry") {
				update.ExpiryDate = &expiryDate
			}
			if flags.Changed("reminder") {
				update.ReminderDays = &reminderDays
			}
			if update == (model.ProductUpdate{}) {
				return fmt.Errorf("nothing to update: pass at least one of --name, --brand, --image, --expiry or --reminder")
			}

			a, err := e.application(cmd.Context())
			if err != nil {
				return err
			}
			product, err := a.Inventory.Update(cmd.Context(), id, &update)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "Updated #%d %s, expires %s\n", product.ID, displayName(product.Name), product.ExpiryDate)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Product name")
	cmd.Flags().StringVar(&brand, "brand", "", "Product brand")
	cmd.Flags().StringVar(&image, "image", "", "Product image URL")
	cmd.Flags().StringVar(&expiryDate, "expiry", "", "Expiry date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&reminderDays, "reminder", 0, "Days before expiry to start reminding")
	return cmd
}

func newNotificationsCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "notifications",
		Short: "Show products that are due for a reminder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.application(cmd.Context())
			if err != nil {
				return err
			}
			notifications := a.Inventory.Notifications(cmd.Context())
			if len(notifications) == 0 {
				fmt.Fprintln(e.out, "Nothing is expiring soon.")
				return nil
			}

			fmt.Fprintln(e.out, notify.Summary(len(notifications)))
			for _, n := range notifications {
				fmt.Fprintf(e.out, "- %s: %d day(s) left\n", displayName(n.Name), n.DaysLeft)
			}
			return nil
		},
	}
}

func printInfo(e *env, info *model.ProductInfo) {
	fmt.Fprintf(e.out, "Barcode: %s\nName:    %s\nBrand:   %s\n", info.Barcode, displayName(info.Name), info.Brand)
	if info.Image != "" {
		fmt.Fprintf(e.out, "Image:   %s\n", info.Image)
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid product ID %q", s)
	}
	return id, nil
}

func displayName(name string) string {
	if name == "" {
		return "(unnamed)"
	}
	return name
}
