// Package cli implements the restcache command: one-shot collection
// operations against a REST API described by a YAML link library.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/restcache"
	"github.com/unkn0wn-root/restcache/internal/config"
)

type runner struct {
	app *App

	libraryFile string
	baseURL     string
	cache       string
	compact     bool
}

// NewRootCmd builds the command tree. Configuration comes from RESTCACHE_*
// variables; flags override them.
func NewRootCmd() *cobra.Command {
	cmd, _ := newRoot()
	return cmd
}

func newRoot() (*cobra.Command, *runner) {
	r := &runner{}
	root := &cobra.Command{
		Use:           "restcache",
		Short:         "Query and modify REST collections through a link library",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return r.open(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&r.libraryFile, "library", "l", "", "YAML link library (RESTCACHE_LIBRARY)")
	root.PersistentFlags().StringVar(&r.baseURL, "base-url", "", "base URL for relative links (RESTCACHE_BASE_URL)")
	root.PersistentFlags().StringVar(&r.cache, "cache", "", "response cache: none|ristretto|bigcache|redis (RESTCACHE_CACHE)")
	root.PersistentFlags().BoolVar(&r.compact, "compact", false, "print JSON on one line")

	root.AddCommand(r.linksCmd(), r.getCmd(), r.saveCmd(), r.removeCmd(), r.invalidateCmd())
	return root, r
}

// Run executes one command line and closes the app it opened, whether or
// not the command succeeded.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd, r := newRoot()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	return errors.Join(err, r.close(ctx))
}

// Execute runs os.Args and returns the process exit code.
func Execute(ctx context.Context) int {
	if err := Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func (r *runner) open(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("library") {
		cfg.LibraryFile = r.libraryFile
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = r.baseURL
	}
	if flags.Changed("cache") {
		cfg.Cache.Provider = r.cache
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	app, err := NewApp(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	r.app = app
	return nil
}

func (r *runner) close(ctx context.Context) error {
	if r.app == nil {
		return nil
	}
	err := r.app.Close(ctx)
	r.app = nil
	return err
}

func (r *runner) linksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "links [prefix]",
		Short: "List library keys and their URIs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			out := cmd.OutOrStdout()
			for _, k := range r.app.Library.Keys() {
				if !strings.HasPrefix(k, prefix) {
					continue
				}
				uri, err := r.app.Library.Get(k)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%s\n", k, uri)
			}
			return nil
		},
	}
}

func (r *runner) getCmd() *cobra.Command {
	var (
		id        string
		skipCache bool
	)
	cmd := &cobra.Command{
		Use:   "get <type> [key=value ...]",
		Short: "Fetch one entity (--id) or the collection list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}
			coll, err := r.obtain(args[0])
			if err != nil {
				return err
			}
			query := restcache.Params{}
			if id != "" {
				query[coll.Meta().IDKey] = parseValue(id)
			}
			for k, v := range params {
				query[k] = v
			}
			res, err := coll.Get(cmd.Context(), query, skipCache)
			if err != nil {
				return err
			}
			if res.Single {
				return r.print(cmd.OutOrStdout(), res.Entity)
			}
			return r.print(cmd.OutOrStdout(), res.List)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "entity identifier")
	cmd.Flags().BoolVar(&skipCache, "skip-cache", false, "bypass the response cache")
	return cmd
}

func (r *runner) saveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <type> <json|->",
		Short: "Create (no id) or update (with id) an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := []byte(args[1])
			if args[1] == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				raw = b
			}
			var e restcache.Entity
			if err := json.Unmarshal(raw, &e); err != nil {
				return fmt.Errorf("entity: %w", err)
			}
			coll, err := r.obtain(args[0])
			if err != nil {
				return err
			}
			saved, err := coll.Save(cmd.Context(), e)
			if err != nil {
				return err
			}
			return r.print(cmd.OutOrStdout(), saved)
		},
	}
}

func (r *runner) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <type> <id>",
		Short: "Delete an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, err := r.obtain(args[0])
			if err != nil {
				return err
			}
			return coll.Remove(cmd.Context(), restcache.Entity{coll.Meta().IDKey: parseValue(args[1])})
		},
	}
}

func (r *runner) invalidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate <prefix>",
		Short: "Drop cached reads of every link under prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.app.Registry.Invalidate(cmd.Context(), args[0])
		},
	}
}

// obtain opts the collection into the response cache when one is configured.
func (r *runner) obtain(typ string) (*restcache.Collection, error) {
	var opts *restcache.CollectionOptions
	if r.app.cache != nil {
		opts = &restcache.CollectionOptions{Cache: &restcache.CacheConfig{TTL: r.app.Config.Cache.TTL}}
	}
	return r.app.Registry.Obtain(typ, nil, opts)
}

func (r *runner) print(w io.Writer, v any) error {
	var (
		b   []byte
		err error
	)
	if r.compact {
		b, err = json.Marshal(v)
	} else {
		b, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func parseParams(args []string) (restcache.Params, error) {
	p := restcache.Params{}
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("param %q: want key=value", a)
		}
		p[k] = parseValue(v)
	}
	return p, nil
}

// parseValue keeps JSON scalars typed ("1" => number, "true" => bool) and
// falls back to the raw string.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		switch v.(type) {
		case float64, bool:
			return v
		}
	}
	return s
}
