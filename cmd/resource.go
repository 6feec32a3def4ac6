package cmd

import (
	"fmt"
	"os"

	"github.com/nodeloop/kuberun/internal/cluster"
	"github.com/urfave/cli/v2"
)

// ResourceCommand reads and mutates arbitrary cluster resources
var ResourceCommand = &cli.Command{
	Name:  "resource",
	Usage: "Get, list, patch, or delete cluster resources",
	Subcommands: []*cli.Command{
		{
			Name:      "get",
			Usage:     "Get a resource as JSON",
			ArgsUsage: "<kind> <name>",
			Flags:     append(sessionFlags, apiVersionFlag()),
			Action: func(ctx *cli.Context) error {
				if ctx.NArg() < 2 {
					return fmt.Errorf("usage: kuberun resource get <kind> <name>")
				}

				session, err := newSession()
				if err != nil {
					return err
				}

				obj, err := session.GetResource(ctx.Context, cluster.ResourceRef{
					APIVersion: ctx.String("api-version"),
					Kind:       ctx.Args().Get(0),
					Name:       ctx.Args().Get(1),
				})
				if err != nil {
					return err
				}
				return printJSON(obj.Object)
			},
		},
		{
			Name:      "list",
			Usage:     "List resources of a kind as JSON",
			ArgsUsage: "<kind>",
			Flags: append(sessionFlags,
				apiVersionFlag(),
				&cli.StringFlag{
					Name:    "selector",
					Aliases: []string{"l"},
					Usage:   "Label selector to filter by (e.g. app=web)",
				},
				&cli.BoolFlag{
					Name:  "managed",
					Usage: "Only list resources this engine created",
				},
			),
			Action: func(ctx *cli.Context) error {
				if ctx.NArg() < 1 {
					return fmt.Errorf("usage: kuberun resource list <kind>")
				}

				session, err := newSession()
				if err != nil {
					return err
				}

				selector := ctx.String("selector")
				if ctx.Bool("managed") {
					managed := cluster.ManagedByLabel + "=" + cluster.ManagedByValue
					if selector == "" {
						selector = managed
					} else {
						selector = selector + "," + managed
					}
				}

				list, err := session.ListResources(ctx.Context, ctx.String("api-version"), ctx.Args().Get(0), session.Namespace(), selector)
				if err != nil {
					return err
				}

				items := make([]map[string]any, 0, len(list.Items))
				for _, item := range list.Items {
					items = append(items, item.Object)
				}
				return printJSON(map[string]any{"items": items, "total": len(items)})
			},
		},
		{
			Name:      "patch",
			Usage:     "Apply a JSON merge patch to a resource",
			ArgsUsage: "<kind> <name> <patch-json>",
			Flags: append(sessionFlags,
				apiVersionFlag(),
				&cli.StringFlag{
					Name:    "file",
					Aliases: []string{"f"},
					Usage:   "Read the patch from a file instead of the argument",
				},
			),
			Action: func(ctx *cli.Context) error {
				if ctx.NArg() < 2 {
					return fmt.Errorf("usage: kuberun resource patch <kind> <name> <patch-json>")
				}

				var patch []byte
				if file := ctx.String("file"); file != "" {
					data, err := os.ReadFile(file)
					if err != nil {
						return fmt.Errorf("failed to read patch file: %w", err)
					}
					patch = data
				} else {
					if ctx.NArg() < 3 {
						return fmt.Errorf("usage: kuberun resource patch <kind> <name> <patch-json>")
					}
					patch = []byte(ctx.Args().Get(2))
				}

				session, err := newSession()
				if err != nil {
					return err
				}

				obj, err := session.PatchResource(ctx.Context, cluster.ResourceRef{
					APIVersion: ctx.String("api-version"),
					Kind:       ctx.Args().Get(0),
					Name:       ctx.Args().Get(1),
				}, patch)
				if err != nil {
					return err
				}
				return printJSON(obj.Object)
			},
		},
		{
			Name:      "delete",
			Usage:     "Delete a resource",
			ArgsUsage: "<kind> <name>",
			Flags:     append(sessionFlags, apiVersionFlag()),
			Action: func(ctx *cli.Context) error {
				if ctx.NArg() < 2 {
					return fmt.Errorf("usage: kuberun resource delete <kind> <name>")
				}

				session, err := newSession()
				if err != nil {
					return err
				}

				kind := ctx.Args().Get(0)
				name := ctx.Args().Get(1)
				if err := session.DeleteResource(ctx.Context, cluster.ResourceRef{
					APIVersion: ctx.String("api-version"),
					Kind:       kind,
					Name:       name,
				}); err != nil {
					return err
				}

				fmt.Printf("Deleted %s %s\n", kind, name)
				return nil
			},
		},
	},
}

func apiVersionFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "api-version",
		Value:   "v1",
		Usage:   "API version of the resource (e.g. v1, apps/v1, batch/v1)",
		EnvVars: []string{"KUBERUN_API_VERSION"},
	}
}
