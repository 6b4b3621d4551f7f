// Package main runs the account-security service with in-memory
// repositories. This is useful for:
// - Quick development and testing
// - Demo/prototype environments
// - Learning the API without database setup
//
// Note: All data is lost when the server stops.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/tendant/chi-demo/app"
	"golang.org/x/crypto/bcrypt"

	"github.com/tablerock/resto-secure/pkg/backup"
	backupapi "github.com/tablerock/resto-secure/pkg/backup/api"
	"github.com/tablerock/resto-secure/pkg/client"
	"github.com/tablerock/resto-secure/pkg/config"
	"github.com/tablerock/resto-secure/pkg/notice"
	"github.com/tablerock/resto-secure/pkg/notification"
	"github.com/tablerock/resto-secure/pkg/risk"
	"github.com/tablerock/resto-secure/pkg/securitylog"
	"github.com/tablerock/resto-secure/pkg/sessions"
	sessionsapi "github.com/tablerock/resto-secure/pkg/sessions/api"
	"github.com/tablerock/resto-secure/pkg/twofa"
	twofaapi "github.com/tablerock/resto-secure/pkg/twofa/api"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting Resto-Secure (in-memory, no database required)")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Repositories
	twofaRepo := twofa.NewInMemRepository()
	logRepo := securitylog.NewInMemRepository()
	sessionRepo := sessions.NewInMemRepository()
	backupRepo := backup.NewInMemRepository()
	domainStore := backup.NewInMemDomainStore()

	// Notifications: SMTP when configured, otherwise deliveries are
	// recorded in memory
	var notifier notification.Notifier
	if cfg.SMTP.Host != "" {
		emailNotifier, err := notification.NewEmailNotifier(notification.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			TLS:      cfg.SMTP.TLS,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		if err != nil {
			slog.Error("Failed to create email notifier", "error", err)
			os.Exit(1)
		}
		notifier = emailNotifier
	} else {
		slog.Warn("SMTP not configured, security alerts will not be delivered")
		notifier = notification.NewMockNotifier()
	}
	noticeManager, err := notice.NewSecurityNoticeManager(notifier)
	if err != nil {
		slog.Error("Failed to create notice manager", "error", err)
		os.Exit(1)
	}

	// Demo identity store with one seeded user
	users := newInMemUserStore()
	demoUserID := uuid.New()
	if err := users.addUser(demoUserID, "demo@resto.example", "pass123"); err != nil {
		slog.Error("Failed to seed demo user", "error", err)
		os.Exit(1)
	}

	// Services
	logService := securitylog.NewService(logRepo)
	twofaService := twofa.NewService(twofaRepo, logService,
		twofa.WithPasswordVerifier(users),
		twofa.WithNotificationManager(noticeManager),
		twofa.WithIssuer(cfg.Security.Issuer),
		twofa.WithLockoutPolicy(cfg.Security.MaxFailedAttempts, cfg.Security.LockoutDuration),
	)
	evaluator := risk.NewEvaluator(risk.DefaultConfig())
	sessionService := sessions.NewService(sessionRepo, logService, evaluator, twofaService,
		sessions.WithNotificationManager(noticeManager),
		sessions.WithSessionTTL(cfg.Sessions.TTL),
		sessions.WithHistoryWindow(cfg.Sessions.HistoryAge, sessions.DEFAULT_HISTORY_LIMIT),
		sessions.WithMaxActiveSessions(cfg.Sessions.MaxActive),
	)
	backupService := backup.NewService(backupRepo, domainStore)

	seedDemoRestaurant(backupService, domainStore)

	// Background workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	scheduler := backup.NewScheduler(backupService, cfg.Backup.SchedulerInterval)
	go scheduler.Start(ctx)

	jwtAuth := jwtauth.New("HS256", []byte(cfg.JWT.Secret), nil)

	server := app.Default()
	server.R.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	setupRoutes(server.R, jwtAuth, twofaService, sessionService, backupService)

	printDemoToken(jwtAuth, demoUserID)

	slog.Info("Resto-Secure ready", "demoUserID", demoUserID)
	server.Run()
}

func setupRoutes(r chi.Router, jwtAuth *jwtauth.JWTAuth, twofaService *twofa.Service, sessionService *sessions.Service, backupService *backup.Service) {
	r.Group(func(r chi.Router) {
		r.Use(client.Verifier(jwtAuth))
		r.Use(jwtauth.Authenticator(jwtAuth))
		r.Use(client.AuthUserMiddleware)

		twofaHandler := twofaapi.NewHandler(twofaService)
		r.Route("/api/security/2fa", twofaHandler.RegisterRoutes)

		sessionHandler := sessionsapi.NewHandler(sessionService)
		r.Route("/api/security/sessions", sessionHandler.RegisterRoutes)

		backupHandler := backupapi.NewHandler(backupService)
		r.Route("/api/admin/backup", backupHandler.RegisterRoutes)
	})
}

// printDemoToken logs a signed bearer token for the seeded user so the
// API can be exercised with curl right away
func printDemoToken(jwtAuth *jwtauth.JWTAuth, userID uuid.UUID) {
	_, tokenString, err := jwtAuth.Encode(map[string]interface{}{
		"user_id": userID.String(),
		"extra_claims": map[string]interface{}{
			"email": "demo@resto.example",
			"roles": []string{"admin"},
		},
	})
	if err != nil {
		slog.Error("Failed to mint demo token", "error", err)
		return
	}
	slog.Info("Demo bearer token (password pass123)", "token", tokenString)
}

// inMemUserStore is a minimal identity store for the demo binary. It
// stands in for the staff directory that owns passwords in production.
type inMemUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]demoUser
}

type demoUser struct {
	email        string
	passwordHash []byte
}

func newInMemUserStore() *inMemUserStore {
	return &inMemUserStore{
		users: make(map[uuid.UUID]demoUser),
	}
}

func (s *inMemUserStore) addUser(userID uuid.UUID, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = demoUser{email: email, passwordHash: hash}
	return nil
}

// VerifyPassword implements twofa.PasswordVerifier
func (s *inMemUserStore) VerifyPassword(ctx context.Context, userID uuid.UUID, password string) error {
	s.mu.Lock()
	user, exists := s.users[userID]
	s.mu.Unlock()
	if !exists {
		return fmt.Errorf("user %s not found", userID)
	}
	return bcrypt.CompareHashAndPassword(user.passwordHash, []byte(password))
}

// seedDemoRestaurant gives the backup scheduler something to snapshot
func seedDemoRestaurant(backupService *backup.Service, domainStore *backup.InMemDomainStore) {
	restaurantID := uuid.New()

	domainStore.AddInventoryItem(backup.InventoryItem{
		RestaurantID: restaurantID, Name: "Tomatoes", Unit: "kg", Quantity: 12, CostPerUnit: 2.4,
	})
	domainStore.AddInventoryItem(backup.InventoryItem{
		RestaurantID: restaurantID, Name: "Olive oil", Unit: "l", Quantity: 6, CostPerUnit: 8.0,
	})
	domainStore.AddMenuItem(backup.MenuItem{
		RestaurantID: restaurantID, Name: "Margherita", Category: "mains", Price: 11.5, IsAvailable: true,
	})

	_, err := backupService.SavePolicy(context.Background(), backup.Setting{
		RestaurantID:      restaurantID,
		AutoBackupEnabled: true,
		FrequencyHours:    24,
		Types:             []backup.BackupType{backup.BackupTypeInventory, backup.BackupTypeMenu},
		RetentionDays:     30,
	})
	if err != nil {
		slog.Error("Failed to seed demo backup policy", "error", err)
		return
	}
	slog.Info("Seeded demo restaurant", "restaurantID", restaurantID)
}
