package main

import (
	"context"
	crypto_rand "crypto/rand"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/afyalink/referral/internal/config"
	"github.com/afyalink/referral/internal/domain/access"
	"github.com/afyalink/referral/internal/domain/identity"
	"github.com/afyalink/referral/internal/domain/registration"
	"github.com/afyalink/referral/internal/platform/db"
	"github.com/afyalink/referral/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "afyalink-server",
		Short: "AfyaLink referral API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(schemaCmd())
	rootCmd.AddCommand(codeCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the referral API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServer(cfg, newLogger(cfg.Env))
		},
	}
}

// withPool loads config and opens a pool for one-shot commands.
func withPool(fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBSchema, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, cfg, pool)
}

// migrationSource returns the embedded migrations unless dir overrides them.
func migrationSource(dir string) fs.FS {
	if dir != "" {
		return os.DirFS(dir)
	}
	return migrations.FS
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				if schema == "" {
					schema = cfg.DBSchema
				}
				migrator := db.NewMigrator(pool, migrationSource(dir))
				fmt.Printf("Running migrations on schema: %s\n", schema)

				count, err := migrator.Up(ctx, schema)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().String("schema", "", "Target schema (defaults to DB_SCHEMA)")
	upCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				if schema == "" {
					schema = cfg.DBSchema
				}
				statuses, err := db.NewMigrator(pool, migrationSource(dir)).Status(ctx, schema)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}

				fmt.Printf("Migration status for schema: %s\n", schema)
				fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				fmt.Println("---------- ---------------------------------------- ---------- --------------------")
				for _, s := range statuses {
					status := "pending"
					appliedAt := ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	}
	statusCmd.Flags().String("schema", "", "Target schema (defaults to DB_SCHEMA)")
	statusCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
	cmd.AddCommand(statusCmd)

	return cmd
}

func schemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage the application schema",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create the application schema and apply migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			skip, _ := cmd.Flags().GetBool("skip-migrations")

			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				if name == "" {
					name = cfg.DBSchema
				}
				var src fs.FS
				if !skip {
					src = migrations.FS
				}
				fmt.Printf("Creating schema: %s\n", name)
				if err := db.CreateSchema(ctx, pool, name, src); err != nil {
					return err
				}
				fmt.Println("Schema ready.")
				return nil
			})
		},
	}
	createCmd.Flags().String("name", "", "Schema name (defaults to DB_SCHEMA)")
	createCmd.Flags().Bool("skip-migrations", false, "Create the schema without applying migrations")
	cmd.AddCommand(createCmd)

	return cmd
}

// parseExpiry accepts an RFC 3339 timestamp or a duration from now ("720h").
func parseExpiry(s string, now time.Time) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return nil, fmt.Errorf("--expires must be RFC 3339 or a duration, got %q", s)
	}
	t := now.Add(d)
	return &t, nil
}

func codeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "code",
		Short: "Manage registration codes",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a registration code",
		RunE: func(cmd *cobra.Command, args []string) error {
			roleName, _ := cmd.Flags().GetString("role")
			code, _ := cmd.Flags().GetString("code")
			maxUses, _ := cmd.Flags().GetInt("max-uses")
			expires, _ := cmd.Flags().GetString("expires")

			role, err := identity.ParseRole(roleName)
			if err != nil {
				return err
			}
			expiresAt, err := parseExpiry(expires, time.Now())
			if err != nil {
				return err
			}
			req := registration.CreateRequest{Code: code, Role: role, ExpiresAt: expiresAt}
			if maxUses > 0 {
				req.MaxUses = &maxUses
			}

			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				svc := newServices(cfg, pool, nil, nil, newLogger(cfg.Env))
				c, err := svc.registration.Create(ctx, access.OperatorCaller(), req)
				if err != nil {
					return err
				}
				fmt.Printf("Created code %s for role %s\n", c.Code, c.Role)
				return nil
			})
		},
	}
	createCmd.Flags().String("role", "", "Role granted by the code")
	createCmd.Flags().String("code", "", "Code text (generated when empty)")
	createCmd.Flags().Int("max-uses", 0, "Maximum redemptions (0 = unlimited)")
	createCmd.Flags().String("expires", "", "Expiry as RFC 3339 or a duration from now")
	_ = createCmd.MarkFlagRequired("role")
	cmd.AddCommand(createCmd)

	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	activateCmd := &cobra.Command{
		Use:   "activate",
		Short: "Activate a pending account, e.g. the first admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			rawID, _ := cmd.Flags().GetString("id")
			roleName, _ := cmd.Flags().GetString("role")

			id, err := uuid.Parse(rawID)
			if err != nil {
				return fmt.Errorf("--id must be a user id: %w", err)
			}
			var role identity.Role
			if roleName != "" {
				if role, err = identity.ParseRole(roleName); err != nil {
					return err
				}
			}

			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				svc := newServices(cfg, pool, nil, nil, newLogger(cfg.Env))
				acct, err := svc.registration.ActivateUser(ctx, access.OperatorCaller(), id, role)
				if err != nil {
					return err
				}
				fmt.Printf("Activated %s with roles %s\n", acct.Email, strings.Join(identity.RoleStrings(acct.Roles), ","))
				return nil
			})
		},
	}
	activateCmd.Flags().String("id", "", "User id")
	activateCmd.Flags().String("role", "", "Role to grant when the user holds none")
	_ = activateCmd.MarkFlagRequired("id")
	cmd.AddCommand(activateCmd)

	return cmd
}

// resolveSigningKey returns the JWT secret, or a random 32-byte key in
// development when none is configured. The second result reports whether
// the key was generated.
func resolveSigningKey(secret string, dev bool) ([]byte, bool, error) {
	if secret != "" {
		return []byte(secret), false, nil
	}
	if !dev {
		return nil, false, nil
	}
	key := make([]byte, 32)
	if _, err := crypto_rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("generate signing key: %w", err)
	}
	return key, true, nil
}
