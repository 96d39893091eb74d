// Package main provides a CLI tool for seeding the database with the
// permission catalogue, an administrator and the circle that empowers it.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"omscore/internal/config"
	"omscore/internal/core/apperror"
	"omscore/internal/domain/auth"
	"omscore/internal/domain/bodies"
	"omscore/internal/domain/circles"
	"omscore/internal/domain/permissions"
	"omscore/internal/infrastructure/storage/postgres"
	"omscore/internal/infrastructure/storage/postgres/auth_repo"
	"omscore/internal/infrastructure/storage/postgres/org_repo"
	"omscore/internal/infrastructure/storage/postgres/permission_repo"
	"omscore/pkg/logger"
)

const adminCircleName = "General Board"

// catalogue is every permission the API checks.
var catalogue = []struct {
	combined    string
	description string
}{
	{"global:create:body", "Create bodies"},
	{"global:update:body", "Edit any body"},
	{"global:delete:body", "Change the status of any body"},
	{"global:view_deleted:body", "List deleted bodies"},
	{"global:view:campaign", "See inactive campaigns"},
	{"local:update:body", "Edit the body the circle belongs to"},
	{"global:create_member:body", "Add members to any body"},
	{"local:create_member:body", "Add members to the body the circle belongs to"},
	{"global:create:circle", "Create circles in any body"},
	{"local:create:circle", "Create circles in the body the circle belongs to"},
	{"global:put_permissions:circle", "Grant and revoke circle permissions"},
	{"global:view:payment", "View payments of any body"},
	{"local:view:payment", "View payments of the body the circle belongs to"},
	{"global:create:permission", "Create permissions"},
	{"global:update:permission", "Edit permissions"},
	{"global:delete:permission", "Delete permissions"},
	{"global:view:audit", "Read the audit trail"},
}

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.PGDSN, 4, 0))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	s := &seeder{
		txm:      postgres.NewTxManager(pool).WithStatementTimeout(cfg.PGStatementTimeout),
		log:      log,
		username: getEnv("ADMIN_USERNAME", "admin"),
		password: getEnv("ADMIN_PASSWORD", "Admin123!"),
		email:    getEnv("ADMIN_EMAIL", "admin@oms.local"),
		tokenTTL: cfg.AccessTokenTTL,
		demo:     os.Getenv("SEED_DEMO_DATA") == "true",
	}

	token, err := s.run(ctx)
	if err != nil {
		log.Fatalw("seeding failed", "error", err)
	}

	log.Info("seeding completed successfully")
	fmt.Printf("admin access token: %s\n", token)
}

type seeder struct {
	txm      *postgres.TxManager
	log      *logger.Logger
	username string
	password string
	email    string
	tokenTTL time.Duration
	demo     bool
}

// run seeds everything in one transaction and then issues an access token
// for the administrator.
func (s *seeder) run(ctx context.Context) (string, error) {
	users := auth_repo.NewUserRepo(s.txm)
	circleRepo := org_repo.NewCircleRepo(s.txm)
	permissionRepo := permission_repo.NewPermissionRepo(s.txm)

	var adminID int64
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		permissionIDs, err := s.seedCatalogue(ctx)
		if err != nil {
			return err
		}

		admin, err := s.seedAdmin(ctx, users)
		if err != nil {
			return err
		}
		adminID = admin.ID

		if err := s.seedAdminCircle(ctx, circleRepo, permissionRepo, admin.ID, permissionIDs); err != nil {
			return err
		}

		if s.demo {
			return s.seedDemoBody(ctx, users, circleRepo)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	authService := auth.NewService(users, auth_repo.NewTokenRepo(s.txm), s.tokenTTL)
	raw, _, err := authService.IssueToken(ctx, adminID)
	if err != nil {
		return "", fmt.Errorf("issue admin token: %w", err)
	}
	return raw, nil
}

// seedCatalogue upserts the permission catalogue and returns the permission
// ids keyed by combined string.
func (s *seeder) seedCatalogue(ctx context.Context) (map[string]int64, error) {
	q := s.txm.GetQuerier(ctx)
	ids := make(map[string]int64, len(catalogue))

	for _, p := range catalogue {
		perm, err := permissions.Parse(p.combined)
		if err != nil {
			return nil, err
		}

		var id int64
		err = q.QueryRow(ctx, `
			INSERT INTO permissions (scope, action, object, combined, description)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (combined) DO UPDATE SET description = EXCLUDED.description
			RETURNING id
		`, string(perm.Scope), perm.Action, perm.Object, perm.Combined(), p.description).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("upsert permission %s: %w", p.combined, err)
		}
		ids[p.combined] = id
	}

	s.log.Infow("permission catalogue seeded", "count", len(ids))
	return ids, nil
}

func (s *seeder) seedAdmin(ctx context.Context, users *auth_repo.UserRepo) (*auth.User, error) {
	existing, err := users.GetByUsername(ctx, s.username)
	if err == nil {
		s.log.Infow("admin user already exists", "username", s.username, "user_id", existing.ID)
		return existing, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, fmt.Errorf("check admin exists: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(s.password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	admin := &auth.User{
		Username:     s.username,
		Email:        s.email,
		PasswordHash: string(passwordHash),
		FirstName:    "System",
		LastName:     "Admin",
	}
	if err := users.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("insert admin user: %w", err)
	}

	s.log.Infow("admin user created", "username", admin.Username, "user_id", admin.ID)
	return admin, nil
}

// seedAdminCircle creates a free circle holding every global permission and
// makes the administrator its member. An existing circle is left untouched.
func (s *seeder) seedAdminCircle(
	ctx context.Context,
	circleRepo *org_repo.CircleRepo,
	permissionRepo *permission_repo.PermissionRepo,
	adminID int64,
	permissionIDs map[string]int64,
) error {
	q := s.txm.GetQuerier(ctx)

	var circleID int64
	err := q.QueryRow(ctx,
		`SELECT id FROM circles WHERE name = $1 AND body_id IS NULL AND parent_circle_id IS NULL`,
		adminCircleName,
	).Scan(&circleID)
	if err == nil {
		s.log.Infow("admin circle already exists", "circle_id", circleID)
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check admin circle: %w", err)
	}

	circle := &circles.Circle{
		Name:        adminCircleName,
		Description: "Holds every global permission",
	}
	if err := circleRepo.Create(ctx, circle); err != nil {
		return fmt.Errorf("create admin circle: %w", err)
	}

	var grants []permission_repo.Grant
	for _, p := range catalogue {
		if permissions.MustParse(p.combined).Scope != permissions.ScopeGlobal {
			continue
		}
		grants = append(grants, permission_repo.Grant{CircleID: circle.ID, PermissionID: permissionIDs[p.combined]})
	}
	n, err := permissionRepo.AssignAll(ctx, grants)
	if err != nil {
		return err
	}

	if _, err := q.Exec(ctx,
		`INSERT INTO circle_memberships (circle_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		circle.ID, adminID,
	); err != nil {
		return fmt.Errorf("add admin to circle: %w", err)
	}

	s.log.Infow("admin circle created", "circle_id", circle.ID, "grants", n)
	return nil
}

// seedDemoBody creates a demo body with its shadow circle.
func (s *seeder) seedDemoBody(ctx context.Context, users *auth_repo.UserRepo, circleRepo *org_repo.CircleRepo) error {
	bodyRepo := org_repo.NewBodyRepo(s.txm)

	if existing, err := bodyRepo.GetByCode(ctx, "AEGEE-Demo"); err == nil {
		s.log.Infow("demo body already exists", "body_id", existing.ID)
		return nil
	} else if !apperror.IsNotFound(err) {
		return err
	}

	service := bodies.NewService(bodies.Deps{
		Bodies:       bodyRepo,
		Memberships:  org_repo.NewMembershipRepo(s.txm),
		Payments:     org_repo.NewPaymentRepo(s.txm),
		JoinRequests: org_repo.NewJoinRequestRepo(s.txm),
		Circles:      circleRepo,
		Users:        users,
		TxManager:    s.txm,
	})

	body := &bodies.Body{
		Code:        "AEGEE-Demo",
		Name:        "AEGEE-Demo",
		Description: "Demo antenna",
		Email:       "demo@oms.local",
		Type:        "antenna",
	}
	if err := service.Create(ctx, body); err != nil {
		return fmt.Errorf("create demo body: %w", err)
	}

	s.log.Infow("demo body created", "body_id", body.ID, "shadow_circle_id", *body.ShadowCircleID)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
