package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"goalline/internal/config"
	"goalline/internal/db"
	"goalline/internal/domain"
	"goalline/internal/engine"
	"goalline/internal/filter"
	"goalline/internal/migrate"
	"goalline/internal/repo"
	"goalline/internal/server"
	"goalline/internal/tenant"
)

var rootCmd = &cobra.Command{
	Use:   "gl",
	Short: "Goalline CLI",
	Long: `Goalline tracks a Goal -> Objective -> Task hierarchy per tenant.
Tasks roll their status up into objectives, and objectives into goals, so
the top of the tree always reflects the work underneath it.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("GOALLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("tenant", "", "tenant id (overrides config)")
	rootCmd.PersistentFlags().String("actor-id", "", "actor identifier (overrides config)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("tenant", rootCmd.PersistentFlags().Lookup("tenant"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(goalCmd())
	rootCmd.AddCommand(objectiveCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(periodCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	var tenantID, actorID string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(tenantID, actorID)), 0o644); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			fmt.Printf("Initialized workspace for tenant %s (config at %s)\n", tenantID, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "local", "tenant id")
	cmd.Flags().StringVar(&actorID, "actor", "local-user", "actor id")
	return cmd
}

func goalCmd() *cobra.Command {
	goal := &cobra.Command{Use: "goal", Short: "Manage goals"}
	goal.AddCommand(goalCreateCmd())
	goal.AddCommand(goalListCmd())
	goal.AddCommand(goalShowCmd())
	goal.AddCommand(goalUpdateCmd())
	goal.AddCommand(goalDeleteCmd())
	goal.AddCommand(goalArchiveCmd())
	return goal
}

func goalCreateCmd() *cobra.Command {
	var title, priority string
	var collaborators, teams []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create goal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				g, err := e.CreateGoal(ctx, engine.GoalCreateOptions{
					Title:         title,
					Collaborators: collaborators,
					Teams:         teams,
					Priority:      priority,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(g)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "goal title")
	cmd.Flags().StringVar(&priority, "priority", "", "priority")
	cmd.Flags().StringSliceVar(&collaborators, "collaborator", nil, "collaborator user id (repeatable)")
	cmd.Flags().StringSliceVar(&teams, "team", nil, "team id (repeatable)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func goalListCmd() *cobra.Command {
	var params listFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List goals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				page, err := e.GetGoals(ctx, params.bag(), params.Page)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(page)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Code", "Title", "Status", "Progress", "Priority"})
				for _, g := range page.Items {
					tw.AppendRow(table.Row{g.Code, g.Title, g.Status, fmt.Sprintf("%d%%", g.Progress), g.Priority})
				}
				tw.Render()
				fmt.Printf("%d total\n", page.Meta.TotalRowCount)
				return nil
			})
		},
	}
	params.register(cmd)
	return cmd
}

func goalShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a goal with its objectives",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				view, err := e.GetGoal(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(view)
			})
		},
	}
	return cmd
}

func goalUpdateCmd() *cobra.Command {
	var title, priority string
	var archived bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var patch engine.GoalPatch
				if cmd.Flags().Changed("title") {
					patch.Title = &title
				}
				if cmd.Flags().Changed("priority") {
					patch.Priority = &priority
				}
				if cmd.Flags().Changed("archived") {
					patch.Archived = &archived
				}
				g, err := e.UpdateGoal(ctx, args[0], patch)
				if err != nil {
					return err
				}
				return printJSONOrTable(g)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&priority, "priority", "", "new priority")
	cmd.Flags().BoolVar(&archived, "archived", false, "archived flag")
	return cmd
}

func goalDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete goals (their objectives survive)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.DeleteGoals(ctx, args)
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	}
	return cmd
}

func goalArchiveCmd() *cobra.Command {
	var restore bool
	cmd := &cobra.Command{
		Use:   "archive <id>...",
		Short: "Archive or restore goals",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				updated, err := e.ArchiveGoals(ctx, args, !restore)
				if err != nil {
					return err
				}
				return printJSONOrTable(updated)
			})
		},
	}
	cmd.Flags().BoolVar(&restore, "restore", false, "restore instead of archive")
	return cmd
}

func objectiveCmd() *cobra.Command {
	obj := &cobra.Command{Use: "objective", Short: "Manage objectives"}
	obj.AddCommand(objectiveCreateCmd())
	obj.AddCommand(objectiveListCmd())
	obj.AddCommand(objectiveShowCmd())
	obj.AddCommand(objectiveDeleteCmd())
	obj.AddCommand(objectiveArchiveCmd())
	return obj
}

func objectiveCreateCmd() *cobra.Command {
	var title, goalID, priority string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create objective",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				o, err := e.CreateObjective(ctx, engine.ObjectiveCreateOptions{
					Title:    title,
					GoalID:   optionalString(goalID),
					Priority: priority,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(o)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "objective title")
	cmd.Flags().StringVar(&goalID, "goal", "", "parent goal id")
	cmd.Flags().StringVar(&priority, "priority", "", "priority")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func objectiveListCmd() *cobra.Command {
	var params listFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List objectives",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				page, err := e.GetObjectives(ctx, params.bag(), params.Page)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(page)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Code", "Title", "Status", "Progress", "Goal"})
				for _, o := range page.Items {
					goal := ""
					if o.GoalID != nil {
						goal = *o.GoalID
					}
					tw.AppendRow(table.Row{o.Code, o.Title, o.Status, fmt.Sprintf("%d%%", o.Progress), goal})
				}
				tw.Render()
				fmt.Printf("%d total\n", page.Meta.TotalRowCount)
				return nil
			})
		},
	}
	params.register(cmd)
	return cmd
}

func objectiveShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an objective with its goal and tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				view, err := e.GetObjective(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(view)
			})
		},
	}
	return cmd
}

func objectiveDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete objectives and their tasks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.DeleteObjectives(ctx, args)
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	}
	return cmd
}

func objectiveArchiveCmd() *cobra.Command {
	var restore bool
	cmd := &cobra.Command{
		Use:   "archive <id>...",
		Short: "Archive or restore objectives",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				updated, err := e.ArchiveObjectives(ctx, args, !restore)
				if err != nil {
					return err
				}
				return printJSONOrTable(updated)
			})
		},
	}
	cmd.Flags().BoolVar(&restore, "restore", false, "restore instead of archive")
	return cmd
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{Use: "task", Short: "Manage tasks"}
	task.AddCommand(taskCreateCmd())
	task.AddCommand(taskListCmd())
	task.AddCommand(taskShowCmd())
	task.AddCommand(taskStatusCmd())
	task.AddCommand(taskSubtaskCmd())
	task.AddCommand(taskDeleteCmd())
	task.AddCommand(taskArchiveCmd())
	task.AddCommand(taskMoveCmd())
	return task
}

func taskCreateCmd() *cobra.Command {
	var title, objectiveID, priority, weight, period string
	var owners, reviewers []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateTask(ctx, engine.TaskCreateOptions{
					Title:       title,
					Owners:      owners,
					Reviewers:   reviewers,
					WeightID:    optionalString(weight),
					Priority:    priority,
					ObjectiveID: optionalString(objectiveID),
					PeriodID:    optionalString(period),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "task title")
	cmd.Flags().StringVar(&objectiveID, "objective", "", "parent objective id")
	cmd.Flags().StringVar(&priority, "priority", "", "priority")
	cmd.Flags().StringVar(&weight, "weight", "", "effort weight id")
	cmd.Flags().StringVar(&period, "period", "", "period id")
	cmd.Flags().StringSliceVar(&owners, "owner", nil, "owner user id (repeatable)")
	cmd.Flags().StringSliceVar(&reviewers, "reviewer", nil, "reviewer user id (repeatable)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskListCmd() *cobra.Command {
	var params listFlags
	var mine bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actorID := ""
				if mine {
					scope, err := tenant.FromContext(ctx)
					if err != nil {
						return err
					}
					actorID = scope.ActorID
				}
				page, err := e.GetTasks(ctx, params.bag(), actorID, params.Page)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(page)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Code", "Title", "Status", "Priority", "Objective"})
				for _, t := range page.Items {
					obj := ""
					if t.ObjectiveID != nil {
						obj = *t.ObjectiveID
					}
					tw.AppendRow(table.Row{t.Code, t.Title, t.Status, t.Priority, obj})
				}
				tw.Render()
				fmt.Printf("%d total\n", page.Meta.TotalRowCount)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&mine, "mine", false, "only tasks I own or review")
	params.register(cmd)
	return cmd
}

func taskShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task with its subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				view, err := e.GetTask(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(view)
			})
		},
	}
	return cmd
}

func taskStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Set a task's status",
		Long:  `Status is one of: "Not started", "In progress", "In review", "Completed".`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				status := domain.Status(args[1])
				t, err := e.UpdateTask(ctx, args[0], engine.TaskPatch{Status: &status})
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func taskSubtaskCmd() *cobra.Command {
	var title, parentStatus string
	var parentProgress int
	cmd := &cobra.Command{
		Use:   "subtask <parent-id>",
		Short: "Create a subtask under a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				link := repo.SubtaskLink{ParentID: args[0]}
				if cmd.Flags().Changed("parent-status") {
					s := domain.Status(parentStatus)
					link.ParentStatus = &s
				}
				if cmd.Flags().Changed("parent-progress") {
					link.ParentProgress = &parentProgress
				}
				t, err := e.CreateSubtask(ctx, engine.TaskCreateOptions{Title: title}, link)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "subtask title")
	cmd.Flags().StringVar(&parentStatus, "parent-status", "", "status to set on the parent")
	cmd.Flags().IntVar(&parentProgress, "parent-progress", 0, "progress to set on the parent")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete tasks and their subtasks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.DeleteTasks(ctx, args)
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	}
	return cmd
}

func taskArchiveCmd() *cobra.Command {
	var restore bool
	cmd := &cobra.Command{
		Use:   "archive <id>...",
		Short: "Archive or restore tasks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				updated, err := e.ArchiveTasks(ctx, args, !restore)
				if err != nil {
					return err
				}
				return printJSONOrTable(updated)
			})
		},
	}
	cmd.Flags().BoolVar(&restore, "restore", false, "restore instead of archive")
	return cmd
}

func taskMoveCmd() *cobra.Command {
	var period string
	var backlog bool
	cmd := &cobra.Command{
		Use:   "move <id>...",
		Short: "Move tasks to a period",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if period == "" && !backlog {
				return fmt.Errorf("--period or --backlog required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.MoveTasks(ctx, args, optionalString(period))
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", "", "target period id")
	cmd.Flags().BoolVar(&backlog, "backlog", false, "move to the backlog (no period)")
	return cmd
}

func periodCmd() *cobra.Command {
	period := &cobra.Command{Use: "period", Short: "Manage periods"}
	period.AddCommand(periodCreateCmd())
	period.AddCommand(periodListCmd())
	return period
}

func periodCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create period",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.CreatePeriod(ctx, name, nil, nil)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "period name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func periodListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List periods",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListPeriods(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	return cmd
}

func apikeyCmd() *cobra.Command {
	key := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an API key for the current tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				k, raw, err := e.CreateAPIKey(ctx, name)
				if err != nil {
					return err
				}
				fmt.Printf("API key created (store it now, it is not shown again):\n%s\n", raw)
				return printJSONOrTable(k)
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "key name")
	key.AddCommand(create)
	return key
}

func settingsCmd() *cobra.Command {
	settings := &cobra.Command{
		Use:   "settings",
		Short: "Show tenant settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.GetTenantSettings(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	var displayName string
	set := &cobra.Command{
		Use:   "set",
		Short: "Update tenant settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.GetTenantSettings(ctx)
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("display-name") {
					s.DisplayName = displayName
				}
				if err := e.PutTenantSettings(ctx, s); err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	set.Flags().StringVar(&displayName, "display-name", "", "tenant display name")
	settings.AddCommand(set)
	return settings
}

func logCmd() *cobra.Command {
	log := &cobra.Command{Use: "log", Short: "Event log"}
	var n int
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.Log(ctx, n)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	tail.Flags().IntVar(&n, "n", 20, "number of events")
	log.AddCommand(tail)
	return log
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := config.Load(workspace)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			secret := os.Getenv("GOALLINE_JWT_SECRET")
			if secret == "" {
				secret = cfg.Server.JWTSecret
			}
			if secret == "" {
				return fmt.Errorf("GOALLINE_JWT_SECRET is required for bearer auth")
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if addr == "" {
				addr = "127.0.0.1:8080"
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: server.AuthConfig{JWTSecret: secret}})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Goalline API on http://%s%s (OpenAPI at %s/openapi.json)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	return cmd
}

// --- helpers ---

// listFlags mirror the HTTP list query parameters.
type listFlags struct {
	Page     int
	Search   string
	Due      string
	Priority string
	Period   string
	View     string
}

func (f *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.Page, "page", 0, "page index (20 per page)")
	cmd.Flags().StringVar(&f.Search, "search", "", "substring over code and title")
	cmd.Flags().StringVar(&f.Due, "due", "", `due window ("Due today", "Due this week", "Due this month")`)
	cmd.Flags().StringVar(&f.Priority, "priority", "", "priority substring")
	cmd.Flags().StringVar(&f.Period, "period", "", `period id, or "null" for the backlog`)
	cmd.Flags().StringVar(&f.View, "view", "", `"archived" to list archived entries`)
}

func (f *listFlags) bag() filter.Bag {
	bag := filter.Bag{}
	if f.Search != "" {
		bag["search"] = f.Search
	}
	if f.Due != "" {
		bag["due"] = f.Due
	}
	if f.Priority != "" {
		bag["priority"] = f.Priority
	}
	if f.Period != "" {
		bag["period"] = f.Period
	}
	if f.View != "" {
		bag["view"] = f.View
	}
	return bag
}

// withEngine opens the workspace database and runs fn under the configured
// tenant scope. The CLI is trusted locally, so the scope comes straight
// from config/flags rather than a token.
func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}
	tenantID := viper.GetString("tenant")
	if tenantID == "" {
		tenantID = cfg.Tenant.ID
	}
	actorID := viper.GetString("actor-id")
	if actorID == "" {
		actorID = cfg.Tenant.Actor
	}
	e := engine.New(conn, cfg)
	return tenant.Run(ctx, tenant.Scope{ActorID: actorID, TenantID: tenantID}, func(ctx context.Context) error {
		return fn(ctx, e)
	})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
