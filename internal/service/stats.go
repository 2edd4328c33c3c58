package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	analyticsdata "google.golang.org/api/analyticsdata/v1beta"
	"google.golang.org/api/option"

	"github.com/connectorzzz/advisor-api/internal/model"
)

// StatsService reads usage numbers from the Google Analytics Data API for
// the analytics dashboard.
type StatsService struct {
	propertyID string
	svc        *analyticsdata.Service
}

// NewStatsService builds a Data API client from a service-account email and
// private key. With empty credentials it returns a disabled service rather
// than an error, so the rest of the API still starts.
func NewStatsService(ctx context.Context, propertyID, clientEmail, privateKey string) (*StatsService, error) {
	if clientEmail == "" || privateKey == "" || propertyID == "" {
		return &StatsService{propertyID: propertyID}, nil
	}

	conf := &jwt.Config{
		Email:      clientEmail,
		PrivateKey: []byte(privateKey),
		Scopes:     []string{analyticsdata.AnalyticsReadonlyScope},
		TokenURL:   google.JWTTokenURL,
	}

	svc, err := analyticsdata.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx)))
	if err != nil {
		return nil, fmt.Errorf("creating analytics client: %w", err)
	}

	return &StatsService{propertyID: propertyID, svc: svc}, nil
}

// Enabled returns true if Data API credentials are configured.
func (s *StatsService) Enabled() bool {
	return s.svc != nil
}

// Fetch returns active users over the last 7 days plus the two feature
// counters over the last 30. Counter failures degrade to zero; only the
// active-users report is fatal.
func (s *StatsService) Fetch(ctx context.Context) (*model.UsageStats, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("Google Analytics credentials are missing")
	}

	activeUsers, err := s.activeUsers(ctx)
	if err != nil {
		return nil, err
	}

	coverLetters := s.eventCount(ctx, EventGenerateCoverLetter)
	improvements := s.eventCount(ctx, EventImproveCV)

	return &model.UsageStats{
		ActiveUsers:             activeUsers,
		CoverLettersGenerated:   strconv.FormatInt(coverLetters, 10),
		CVImprovementsSuggested: strconv.FormatInt(improvements, 10),
	}, nil
}

func (s *StatsService) activeUsers(ctx context.Context) (string, error) {
	resp, err := s.svc.Properties.RunReport("properties/"+s.propertyID, &analyticsdata.RunReportRequest{
		DateRanges: []*analyticsdata.DateRange{{StartDate: "7daysAgo", EndDate: "today"}},
		Metrics:    []*analyticsdata.Metric{{Name: "activeUsers"}},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("fetching active users: %w", err)
	}

	return firstMetricValue(resp), nil
}

// eventCount returns the 30-day count for one event name, or zero when the
// report fails — a broken counter should not take down the dashboard.
func (s *StatsService) eventCount(ctx context.Context, eventName string) int64 {
	resp, err := s.svc.Properties.RunReport("properties/"+s.propertyID, &analyticsdata.RunReportRequest{
		DateRanges: []*analyticsdata.DateRange{{StartDate: "30daysAgo", EndDate: "today"}},
		Metrics:    []*analyticsdata.Metric{{Name: "eventCount"}},
		DimensionFilter: &analyticsdata.FilterExpression{
			Filter: &analyticsdata.Filter{
				FieldName: "eventName",
				StringFilter: &analyticsdata.StringFilter{
					Value:     eventName,
					MatchType: "EXACT",
				},
			},
		},
	}).Context(ctx).Do()
	if err != nil {
		log.Warn().Err(err).Str("event", eventName).Msg("Failed to fetch event count")
		return 0
	}

	n, err := strconv.ParseInt(firstMetricValue(resp), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func firstMetricValue(resp *analyticsdata.RunReportResponse) string {
	if len(resp.Rows) == 0 || len(resp.Rows[0].MetricValues) == 0 {
		return "0"
	}
	return resp.Rows[0].MetricValues[0].Value
}
