package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"save-the-fridge/internal/model"

	"github.com/spf13/cobra"
)

const scanPollInterval = 100 * time.Millisecond

func newScanCommand(e *env) *cobra.Command {
	var (
		timeout      time.Duration
		reminderDays int
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a barcode with the configured scanner and add the product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := e.application(ctx)
			if err != nil {
				return err
			}

			status, err := a.Scan.Start(ctx)
			if err != nil {
				var de *model.DomainError
				if errors.As(err, &de) {
					for _, hint := range a.Scan.Status(ctx).Hints {
						fmt.Fprintf(e.errOut, "  - %s\n", hint)
					}
				}
				return err
			}
			if status.Device != "" {
				fmt.Fprintf(e.out, "Scanning with %s...\n", status.Device)
			}

			status, err = waitForScan(ctx, a.Scan.Status, timeout)
			if err != nil {
				if _, stopErr := a.Scan.Stop(context.WithoutCancel(ctx)); stopErr != nil {
					e.logger.Warn().Err(stopErr).Msg("failed to stop scanner")
				}
				return err
			}
			if status.Error != "" {
				return errors.New(status.Error)
			}

			printInfo(e, status.Pending)

			expiryDate, err := e.prompt("Expiry date (YYYY-MM-DD): ")
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("reminder") {
				answer, err := e.prompt(fmt.Sprintf("Remind how many days before expiry? [%d]: ", reminderDays))
				if err != nil {
					return err
				}
				if answer != "" {
					if reminderDays, err = strconv.Atoi(answer); err != nil {
						return fmt.Errorf("invalid number of days %q", answer)
					}
				}
			}

			product, err := a.Inventory.Add(ctx, &model.AddProductRequest{
				Barcode:      status.Pending.Barcode,
				ExpiryDate:   expiryDate,
				ReminderDays: reminderDays,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "Added #%d %s, expires %s\n", product.ID, displayName(product.Name), product.ExpiryDate)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "How long to wait for a barcode")
	cmd.Flags().IntVar(&reminderDays, "reminder", defaultReminderDays, "Days before expiry to start reminding")
	return cmd
}

// waitForScan polls until a scanned product is pending or the scan failed.
// On success the returned status has either Pending or Error set.
func waitForScan(ctx context.Context, status func(context.Context) *model.ScanStatus, timeout time.Duration) (*model.ScanStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(scanPollInterval)
	defer ticker.Stop()

	for {
		s := status(ctx)
		if !s.Loading && (s.Pending != nil || s.Error != "") {
			return s, nil
		}
		if s.State == "failed" {
			return nil, fmt.Errorf("scanner failed")
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("no barcode scanned within %s", timeout)
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
