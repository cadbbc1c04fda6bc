package grabber

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hazyhaar/hourmaster/proto"
)

// FitbitAuth carries the OAuth2 client pair and the subject's refresh token.
type FitbitAuth struct {
	ClientID     string
	ClientSecret string
	Token        string
}

// FitbitConfig tunes the Fitbit client. Zero values get defaults.
type FitbitConfig struct {
	// BaseURL overrides https://api.fitbit.com (tests point it at httptest).
	BaseURL string
	// AuthURL overrides the token endpoint base. Defaults to BaseURL.
	AuthURL string
	Timeout time.Duration
	Logger  *slog.Logger
}

func (c *FitbitConfig) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.fitbit.com"
	}
	if c.AuthURL == "" {
		c.AuthURL = c.BaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Fitbit fetches hourly activity and sleep intervals from the Fitbit web
// API. NewFitbit refreshes the provided token eagerly so a dead token is
// detected before any data request is made.
type Fitbit struct {
	cfg    FitbitConfig
	client *http.Client
	token  string
	log    *slog.Logger
}

// NewFitbit exchanges the refresh token for a fresh access token and
// returns a ready client. A missing or rejected token yields ErrTokenExpired.
func NewFitbit(auth FitbitAuth, cfg FitbitConfig) (*Fitbit, error) {
	cfg.defaults()
	if auth.Token == "" {
		return nil, ErrTokenExpired
	}
	f := &Fitbit{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    cfg.Logger,
	}
	if err := f.refresh(auth); err != nil {
		return nil, err
	}
	return f, nil
}

// Token returns the token obtained by the last refresh, for persistence.
func (f *Fitbit) Token() string { return f.token }

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (f *Fitbit) refresh(auth FitbitAuth) error {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {auth.Token},
	}
	req, err := http.NewRequest(http.MethodPost, f.cfg.AuthURL+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("fitbit: build token request: %w", err)
	}
	req.SetBasicAuth(auth.ClientID, auth.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("fitbit: token refresh: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		f.log.Warn("fitbit: refresh token rejected", "status", resp.StatusCode)
		return ErrTokenExpired
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fitbit: token refresh: unexpected status %d", resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return fmt.Errorf("fitbit: decode token response: %w", err)
	}
	f.token = tok.RefreshToken
	f.client.Transport = &bearerTransport{token: tok.AccessToken, next: http.DefaultTransport}
	return nil
}

type bearerTransport struct {
	token string
	next  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.token)
	return t.next.RoundTrip(clone)
}

// FetchHourlyActivity derives per-hour active minutes from the minute-level
// calories intraday series: every minute with activity level >= 1 counts as
// one active minute. All hours before the last reported one are complete.
func (f *Fitbit) FetchHourlyActivity(ctx context.Context, date time.Time) ([]HourlyActivity, error) {
	var root struct {
		Intraday struct {
			Dataset []struct {
				Time  string `json:"time"`
				Level int    `json:"level"`
			} `json:"dataset"`
		} `json:"activities-log-calories-intraday"`
	}
	path := fmt.Sprintf("/1/user/-/activities/log/calories/date/%s/1d/1min.json", date.Format("2006-01-02"))
	if err := f.getJSON(ctx, path, &root); err != nil {
		return nil, err
	}

	byHour := map[int]*HourlyActivity{}
	for _, v := range root.Intraday.Dataset {
		t, err := proto.ParseTimeOfDay(v.Time)
		if err != nil {
			return nil, fmt.Errorf("fitbit: bad dataset time: %w", err)
		}
		h := byHour[t.Hour()]
		if h == nil {
			h = &HourlyActivity{Hour: t.Hour()}
			byHour[t.Hour()] = h
		}
		if v.Level >= 1 {
			h.ActiveMinutes++
		}
	}

	hours := make([]HourlyActivity, 0, len(byHour))
	for hr := 0; hr < 24; hr++ {
		if h := byHour[hr]; h != nil {
			hours = append(hours, *h)
		}
	}
	for i := range hours {
		if i < len(hours)-1 {
			hours[i].Complete = true
		}
	}
	return hours, nil
}

// FetchSleepIntervals reads the sleep log for the date. Intervals spilling
// over from the previous or into the next day are clamped to the day's
// boundaries, matching how the engine reasons about a single day.
func (f *Fitbit) FetchSleepIntervals(ctx context.Context, date time.Time) ([]SleepInterval, error) {
	var root struct {
		Sleep []struct {
			StartTime string `json:"startTime"`
			EndTime   string `json:"endTime"`
		} `json:"sleep"`
	}
	path := fmt.Sprintf("/1.2/user/-/sleep/date/%s.json", date.Format("2006-01-02"))
	if err := f.getJSON(ctx, path, &root); err != nil {
		return nil, err
	}

	day := date.Format("2006-01-02")
	intervals := make([]SleepInterval, 0, len(root.Sleep))
	for _, s := range root.Sleep {
		start, err := parseSleepTime(s.StartTime, day, proto.Midnight)
		if err != nil {
			return nil, err
		}
		end, err := parseSleepTime(s.EndTime, day, proto.EndOfDay)
		if err != nil {
			return nil, err
		}
		intervals = append(intervals, SleepInterval{Start: start, End: end})
	}
	return intervals, nil
}

// parseSleepTime extracts the time of day from a Fitbit timestamp like
// "2019-03-01T23:40:00.000". Timestamps on a different date clamp to the
// given boundary value.
func parseSleepTime(ts, day string, boundary proto.TimeOfDay) (proto.TimeOfDay, error) {
	datePart, timePart, ok := strings.Cut(ts, "T")
	if !ok {
		return 0, fmt.Errorf("fitbit: bad sleep timestamp %q", ts)
	}
	if datePart != day {
		return boundary, nil
	}
	if i := strings.IndexByte(timePart, '.'); i >= 0 {
		timePart = timePart[:i]
	}
	return proto.ParseTimeOfDay(timePart)
}

func (f *Fitbit) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("fitbit: build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("fitbit: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrTokenExpired
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fitbit: GET %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("fitbit: decode %s: %w", path, err)
	}
	return nil
}
