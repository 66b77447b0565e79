package fitsync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/minhpham/blaze/config"
	"github.com/minhpham/blaze/ledger"
	"github.com/minhpham/blaze/models"
	"github.com/minhpham/blaze/utils"
)

const activityURL = "https://api.fitbit.com/1/user/-/activities/date/%s.json"

// OAuthConfig builds the Fitbit OAuth2 config from app configuration.
func OAuthConfig() *oauth2.Config {
	cfg := config.Get()
	return &oauth2.Config{
		ClientID:     cfg.FitbitClientID,
		ClientSecret: cfg.FitbitClientSecret,
		RedirectURL:  cfg.FitbitRedirectBase + "/api/v1/fitbit/callback",
		Scopes:       []string{"activity", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://www.fitbit.com/oauth2/authorize",
			TokenURL:  "https://api.fitbit.com/oauth2/token",
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// DailySummary is the slice of Fitbit's daily activity we act on.
type DailySummary struct {
	Steps         int
	ActiveMinutes int
}

type activityResponse struct {
	Summary struct {
		Steps               int `json:"steps"`
		FairlyActiveMinutes int `json:"fairlyActiveMinutes"`
		VeryActiveMinutes   int `json:"veryActiveMinutes"`
	} `json:"summary"`
}

// FetchDailySummary pulls the activity summary for one day using the
// given token source.
func FetchDailySummary(ctx context.Context, src oauth2.TokenSource, day string) (*DailySummary, error) {
	client := oauth2.NewClient(ctx, src)
	client.Timeout = 15 * time.Second

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(activityURL, day), nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fitbit activity request: status %d", resp.StatusCode)
	}

	var parsed activityResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return &DailySummary{
		Steps:         parsed.Summary.Steps,
		ActiveMinutes: parsed.Summary.FairlyActiveMinutes + parsed.Summary.VeryActiveMinutes,
	}, nil
}

// Worker periodically syncs Fitbit activity and records automatic
// check-ins for streaks that opted in.
type Worker struct {
	db     *gorm.DB
	engine *ledger.Engine
	clock  ledger.Clock
	stop   chan struct{}

	// fetch is swappable for tests.
	fetch func(ctx context.Context, src oauth2.TokenSource, day string) (*DailySummary, error)
}

// NewWorker creates a sync worker over the given database.
func NewWorker(db *gorm.DB) *Worker {
	return &Worker{
		db:     db,
		engine: ledger.New(db),
		clock:  ledger.SystemClock(),
		stop:   make(chan struct{}),
		fetch:  FetchDailySummary,
	}
}

// Engine exposes the ledger engine so HTTP handlers share one instance.
func (w *Worker) Engine() *ledger.Engine {
	return w.engine
}

// Start launches the periodic sync loop.
func (w *Worker) Start() {
	interval := time.Duration(config.Get().FitbitSyncMinutes) * time.Minute
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				if n, err := w.RunOnce(ctx); err != nil {
					utils.Sugar.Errorw("fitbit sync failed", "error", err)
				} else if n > 0 {
					utils.Sugar.Infow("fitbit sync complete", "auto_check_ins", n)
				}
				cancel()
			case <-w.stop:
				return
			}
		}
	}()
}

// Stop terminates the sync loop.
func (w *Worker) Stop() {
	close(w.stop)
}

// RunOnce syncs every connected user once and returns the number of
// automatic check-ins recorded.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	var users []models.User
	if err := w.db.Where("fitbit_access_token <> ''").Find(&users).Error; err != nil {
		return 0, err
	}

	total := 0
	for i := range users {
		n, err := w.syncUser(ctx, &users[i])
		if err != nil {
			utils.Sugar.Warnw("fitbit user sync failed", "user_id", users[i].ID, "error", err)
			continue
		}
		total += n
	}
	return total, nil
}

func (w *Worker) syncUser(ctx context.Context, user *models.User) (int, error) {
	day := w.clock.Today()

	var streaks []models.Streak
	err := w.db.Where("user_id = ? AND auto_checkin_source = ?", user.ID, models.AutoSourceFitbit).
		Find(&streaks).Error
	if err != nil {
		return 0, err
	}

	// Skip streaks already recorded today before spending an API call.
	pending := streaks[:0]
	for i := range streaks {
		var count int64
		if err := w.db.Model(&models.CheckIn{}).
			Where("streak_id = ? AND check_in_date = ?", streaks[i].ID, day).
			Count(&count).Error; err != nil {
			return 0, err
		}
		if count == 0 {
			pending = append(pending, streaks[i])
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	token := &oauth2.Token{
		AccessToken:  user.FitbitAccessToken,
		RefreshToken: user.FitbitRefreshToken,
		Expiry:       user.FitbitTokenExpiry,
	}
	src := OAuthConfig().TokenSource(ctx, token)

	summary, err := w.fetch(ctx, src, day)
	if err != nil {
		return 0, err
	}

	// Persist a refreshed token so the next run does not refresh again.
	if fresh, err := src.Token(); err == nil && fresh.AccessToken != user.FitbitAccessToken {
		w.db.Model(user).Updates(map[string]interface{}{
			"fitbit_access_token":  fresh.AccessToken,
			"fitbit_refresh_token": fresh.RefreshToken,
			"fitbit_token_expiry":  fresh.Expiry,
		})
	}

	reward := config.Get().CheckinRewardCoins
	recorded := 0
	for i := range pending {
		s := &pending[i]
		if summary.Steps < s.AutoCheckinMinSteps && summary.ActiveMinutes < s.AutoCheckinMinMinutes {
			continue
		}
		_, err := w.engine.RecordCheckIn(s.ID, user.ID, ledger.CheckInInput{
			Tier: models.TierFull,
			Note: fmt.Sprintf("Auto: %d steps, %d active minutes", summary.Steps, summary.ActiveMinutes),
		})
		if err != nil {
			if err == ledger.ErrAlreadyCheckedIn {
				continue
			}
			return recorded, err
		}
		if err := w.db.Model(&models.User{}).Where("id = ?", user.ID).
			Update("coins", gorm.Expr("coins + ?", reward)).Error; err != nil {
			utils.Sugar.Errorw("auto check-in reward failed", "user_id", user.ID, "error", err)
		}
		recorded++
	}
	return recorded, nil
}
