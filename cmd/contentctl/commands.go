package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gogotex/gogotex/backend/content-service/internal/app"
	"github.com/gogotex/gogotex/backend/content-service/internal/auth"
	"github.com/gogotex/gogotex/backend/content-service/internal/config"
	"github.com/gogotex/gogotex/backend/content-service/internal/content"
	"github.com/gogotex/gogotex/backend/content-service/internal/content/repository"
	"github.com/gogotex/gogotex/backend/content-service/internal/pipeline"
	"github.com/gogotex/gogotex/backend/content-service/internal/revalidate"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type cli struct {
	v      *viper.Viper
	logger *zap.Logger
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	c := &cli{v: v, logger: zap.NewNop()}
	root := &cobra.Command{
		Use:          "contentctl",
		Short:        "Seed and inspect website content",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				l, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				c.logger = l
			}
			return nil
		},
	}

	config.SetDefaults(v)
	pf := root.PersistentFlags()
	pf.String("backend", v.GetString("CONTENT_BACKEND"), "content backend (file, mongo, sqlite, memory)")
	pf.String("content-file", v.GetString("CONTENT_FILE"), "content file for the file backend")
	pf.String("sqlite-path", v.GetString("CONTENT_SQLITE_PATH"), "database path for the sqlite backend")
	pf.String("mongo-uri", "", "MongoDB URI for the mongo backend")
	pf.String("mongo-database", v.GetString("MONGODB_DATABASE"), "MongoDB database")
	pf.Bool("verbose", false, "log to stderr")
	bindFlag(v, pf.Lookup("backend"), "CONTENT_BACKEND")
	bindFlag(v, pf.Lookup("content-file"), "CONTENT_FILE")
	bindFlag(v, pf.Lookup("sqlite-path"), "CONTENT_SQLITE_PATH")
	bindFlag(v, pf.Lookup("mongo-uri"), "MONGODB_URI")
	bindFlag(v, pf.Lookup("mongo-database"), "MONGODB_DATABASE")

	root.AddCommand(c.seedCmd(), c.versionsCmd(), c.activateCmd(), c.exportCmd(), c.tokenCmd(), c.revokeCmd(), c.watchCmd())
	return root
}

func bindFlag(v *viper.Viper, f *pflag.Flag, key string) {
	if err := v.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", f.Name, err))
	}
}

// open builds the service stack from the bound configuration.
func (c *cli) open(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(c.v)
	if err != nil {
		return nil, err
	}
	return app.Build(ctx, cfg, c.logger)
}

func (c *cli) seedCmd() *cobra.Command {
	var file string
	var yes bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a new active version from a JSON content file",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readContentFile(file)
			if err != nil {
				return err
			}
			if err := content.ValidateDocument(doc); err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			versioned, ok := a.Store.(*repository.Versioned)
			if !ok {
				return fmt.Errorf("seed needs a versioned backend, %q keeps no history", a.Store.Backend())
			}
			n, err := versioned.History().CountVersions(ctx)
			if err != nil {
				return err
			}
			if n > 0 && !yes {
				ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
					fmt.Sprintf("%d content version(s) already exist. Create a new active version?", n))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "seed cancelled")
					return nil
				}
			}

			var saved *content.Document
			err = pipeline.Retry(ctx, pipeline.DefaultPolicy, func(ctx context.Context) error {
				var err error
				saved, err = a.Service.UpdateCompleteContent(ctx, doc)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created version %d with %d page(s)\n", saved.Version, len(saved.Pages))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "content.json", "JSON file with global and pages")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func (c *cli) versionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "versions",
		Short: "List content versions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)
			if a.History() == nil {
				return content.ErrVersioningUnsupported
			}
			list, err := a.History().ListVersions(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tACTIVE\tPAGES\tCREATED")
			for _, v := range list {
				active := ""
				if v.Active {
					active = "*"
				}
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", v.Version, active, v.Pages, v.Timestamp.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
}

func (c *cli) activateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate VERSION",
		Short: "Make VERSION the active content version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil || version < 1 {
				return fmt.Errorf("invalid version %q", args[0])
			}
			ctx := cmd.Context()
			a, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)
			if a.History() == nil {
				return content.ErrVersioningUnsupported
			}
			doc, err := a.History().ActivateVersion(ctx, version)
			if err != nil {
				return err
			}
			for _, p := range append([]content.Page{{Slug: "/"}}, doc.Pages...) {
				if err := a.Invalidator.Invalidate(ctx, content.RoutePath(p.Slug)); err != nil {
					c.logger.Warn("route revalidation failed", zap.String("slug", p.Slug), zap.Error(err))
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d is active\n", doc.Version)
			return nil
		},
	}
}

func (c *cli) exportCmd() *cobra.Command {
	var out string
	var archived int
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the active content as a seed file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)
			var doc *content.Document
			if archived > 0 {
				if a.Archive == nil {
					return content.ErrArchiveUnavailable
				}
				doc, err = a.Archive.Load(ctx, archived)
			} else {
				doc, err = a.Service.GetCompleteContent(ctx)
			}
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(map[string]any{"global": doc.Global, "pages": doc.Pages}, "", "  ")
			if err != nil {
				return err
			}
			b = append(b, '\n')
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(b)
				return err
			}
			return os.WriteFile(out, b, 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().IntVar(&archived, "archived", 0, "export this version from the MinIO snapshot archive instead")
	return cmd
}

func (c *cli) tokenCmd() *cobra.Command {
	var subject string
	var roles []string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin bearer token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			iss, err := auth.NewIssuer(os.Getenv("JWT_SECRET"), ttl)
			if err != nil {
				return err
			}
			tok, err := iss.Issue(subject, roles...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject")
	cmd.Flags().StringSliceVar(&roles, "role", []string{auth.AdminRole}, "roles to grant")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func (c *cli) revokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke TOKEN",
		Short: "Reject an issued admin token until it expires",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			iss, err := auth.NewIssuer(os.Getenv("JWT_SECRET"), 0)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			tok, err := iss.Verify(ctx, strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			id, exp, err := auth.TokenID(tok)
			if err != nil {
				return err
			}
			a, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)
			if a.Redis == nil {
				return errors.New("revoke needs REDIS_HOST")
			}
			if err := auth.NewRevocations(a.Redis).Revoke(ctx, id, time.Until(exp)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked token %s until %s\n", id, exp.UTC().Format(time.RFC3339))
			return nil
		},
	}
}

func (c *cli) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print route revalidations published on Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)
			if a.Redis == nil {
				return errors.New("watch needs REDIS_HOST")
			}
			out := cmd.OutOrStdout()
			err = revalidate.Subscribe(ctx, a.Redis, a.Config.Revalidate.Channel, func(ev revalidate.Event) {
				fmt.Fprintf(out, "%s\t%s\n", ev.At.Format(time.RFC3339), ev.Path)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func readContentFile(path string) (*content.Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed struct {
		Global content.Global `json:"global"`
		Pages  []content.Page `json:"pages"`
	}
	if err := json.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", content.ErrMalformedContent, path, err)
	}
	return &content.Document{Global: seed.Global, Pages: seed.Pages}, nil
}

func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
