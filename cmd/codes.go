package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"sunrun/credithub/internal/repository"
	"sunrun/credithub/internal/service"
)

var codesCmd = &cobra.Command{
	Use:   "codes",
	Short: "Manage redeem codes",
}

var (
	createAmount    int64
	createCount     int
	createCreatedBy string

	listUsed  string
	listLimit int
)

var codesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Mint a batch of redeem codes and print them as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCodeService(func(svc service.CodeService) error {
			codes, err := svc.CreateCodes(cmd.Context(), createCreatedBy, createAmount, createCount)
			if len(codes) > 0 {
				if encErr := printJSON(cmd, codes); encErr != nil {
					return errors.Join(err, encErr)
				}
			}
			return err
		})
	},
}

var codesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List redeem codes, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := repository.CodeFilter{Limit: listLimit}
		switch listUsed {
		case "", "all":
		case "true", "false":
			used := listUsed == "true"
			filter.Used = &used
		default:
			return errors.New("--used must be true, false or all")
		}

		return withCodeService(func(svc service.CodeService) error {
			codes, err := svc.ListCodes(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printJSON(cmd, codes)
		})
	},
}

func init() {
	codesCreateCmd.Flags().Int64Var(&createAmount, "amount", 1, "credits granted per code")
	codesCreateCmd.Flags().IntVar(&createCount, "count", 1, "number of codes to mint")
	codesCreateCmd.Flags().StringVar(&createCreatedBy, "created-by", "cli", "creator recorded on each code")

	codesListCmd.Flags().StringVar(&listUsed, "used", "all", "filter by state: true, false or all")
	codesListCmd.Flags().IntVar(&listLimit, "limit", 100, "maximum number of codes")

	codesCmd.AddCommand(codesCreateCmd)
	codesCmd.AddCommand(codesListCmd)
}

func withCodeService(fn func(svc service.CodeService) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	st, err := openStores(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	if !st.configured() {
		return service.ErrStoreNotConfigured
	}
	return fn(service.NewCodeService(st.codes, logger))
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
