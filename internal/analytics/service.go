package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/wolfman30/clinic-crm/internal/appointments"
	"github.com/wolfman30/clinic-crm/pkg/logging"
)

var analyticsTracer = otel.Tracer("crm.internal.analytics")

const (
	// DefaultRange is the reporting period when no dates are given.
	DefaultRange = 30 * 24 * time.Hour
	// DefaultRealtimeTTL is how long realtime metrics stay cached.
	DefaultRealtimeTTL = 30 * time.Second

	workdayMinutes = 8 * 60
	unassigned     = "Unassigned"
)

// revenueStatuses are the statuses whose revenue counts as earned or booked.
var revenueStatuses = []string{
	string(appointments.StatusScheduled),
	string(appointments.StatusConfirmed),
	string(appointments.StatusCompleted),
}

// Range is a reporting period, optionally narrowed to one provider.
type Range struct {
	From       time.Time
	To         time.Time
	ProviderID *uuid.UUID
}

func (r Range) query(statuses ...string) Query {
	return Query{From: r.From, To: r.To, ProviderID: r.ProviderID, Statuses: statuses}
}

// Overview is the dashboard summary.
type Overview struct {
	TotalAppointments int            `json:"total_appointments"`
	TotalClients      int            `json:"total_clients"`
	TotalProviders    int            `json:"total_providers"`
	TodayAppointments int            `json:"today_appointments"`
	WeekAppointments  int            `json:"week_appointments"`
	StatusBreakdown   map[string]int `json:"status_breakdown"`
}

// DayCount is the number of appointments starting on a date.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ProviderCount is the number of appointments per provider.
type ProviderCount struct {
	ProviderID uuid.UUID `json:"provider_id"`
	Provider   string    `json:"provider"`
	Count      int       `json:"count"`
}

// StatusCount is the number of appointments in a status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// DayRevenue is the revenue of appointments starting on a date.
type DayRevenue struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
}

// RevenueReport totals revenue over a range.
type RevenueReport struct {
	TotalRevenue float64      `json:"total_revenue"`
	Data         []DayRevenue `json:"data"`
}

// ServiceStats is bookings and revenue for one service.
type ServiceStats struct {
	ServiceID *uuid.UUID `json:"service_id"`
	Service   string     `json:"service"`
	Bookings  int        `json:"bookings"`
	Revenue   float64    `json:"revenue"`
}

// LiveAppointment describes the current or next appointment.
type LiveAppointment struct {
	ID               uuid.UUID `json:"id"`
	Title            string    `json:"title"`
	Provider         string    `json:"provider"`
	Client           string    `json:"client"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	Status           string    `json:"status"`
	MinutesRemaining *int      `json:"minutesRemaining,omitempty"`
	MinutesUntil     *int      `json:"minutesUntil,omitempty"`
}

// Realtime is the live dashboard snapshot.
type Realtime struct {
	TotalToday         int              `json:"totalToday"`
	TodayByStatus      map[string]int   `json:"todayByStatus"`
	CurrentAppointment *LiveAppointment `json:"currentAppointment"`
	NextAppointment    *LiveAppointment `json:"nextAppointment"`
	OccupancyRate      float64          `json:"occupancyRate"`
	Timestamp          time.Time        `json:"timestamp"`
}

// Service computes dashboard reports.
type Service struct {
	store       Store
	redis       *redis.Client
	realtimeTTL time.Duration
	loc         *time.Location
	now         func() time.Time
	logger      *logging.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRedis caches realtime metrics in Redis for ttl.
func WithRedis(client *redis.Client, ttl time.Duration) Option {
	return func(s *Service) {
		s.redis = client
		if ttl > 0 {
			s.realtimeTTL = ttl
		}
	}
}

// WithLocation sets the zone dates are grouped in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates an analytics service reading from store.
func NewService(store Store, opts ...Option) *Service {
	if store == nil {
		panic("analytics: store required")
	}
	s := &Service{
		store:       store,
		realtimeTTL: DefaultRealtimeTTL,
		loc:         time.UTC,
		now:         time.Now,
		logger:      logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Overview summarises appointments in r plus live counts around now.
func (s *Service) Overview(ctx context.Context, r Range) (*Overview, error) {
	ctx, span := analyticsTracer.Start(ctx, "analytics.overview")
	defer span.End()

	records, err := s.store.Appointments(ctx, r.query())
	if err != nil {
		return nil, err
	}
	totals, err := s.store.Totals(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	today, err := s.store.Appointments(ctx, Query{From: now.Add(-24 * time.Hour), To: now.Add(24 * time.Hour), ProviderID: r.ProviderID})
	if err != nil {
		return nil, err
	}
	week, err := s.store.Appointments(ctx, Query{From: now.AddDate(0, 0, -7), To: now.AddDate(0, 0, 7), ProviderID: r.ProviderID})
	if err != nil {
		return nil, err
	}

	breakdown := make(map[string]int)
	for _, rec := range records {
		breakdown[rec.Status]++
	}
	return &Overview{
		TotalAppointments: len(records),
		TotalClients:      totals.Clients,
		TotalProviders:    totals.Providers,
		TodayAppointments: len(today),
		WeekAppointments:  len(week),
		StatusBreakdown:   breakdown,
	}, nil
}

// OverTime counts appointments per calendar date in the clinic timezone.
func (s *Service) OverTime(ctx context.Context, r Range) ([]DayCount, error) {
	records, err := s.store.Appointments(ctx, r.query())
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, rec := range records {
		counts[s.day(rec.Start)]++
	}
	out := make([]DayCount, 0, len(counts))
	for _, day := range sortedKeys(counts) {
		out = append(out, DayCount{Date: day, Count: counts[day]})
	}
	return out, nil
}

// ByProvider counts appointments per provider, busiest first.
func (s *Service) ByProvider(ctx context.Context, r Range) ([]ProviderCount, error) {
	records, err := s.store.Appointments(ctx, r.query())
	if err != nil {
		return nil, err
	}
	index := make(map[uuid.UUID]int)
	var out []ProviderCount
	for _, rec := range records {
		i, ok := index[rec.ProviderID]
		if !ok {
			i = len(out)
			index[rec.ProviderID] = i
			out = append(out, ProviderCount{ProviderID: rec.ProviderID, Provider: rec.ProviderName})
		}
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Provider < out[j].Provider
	})
	if out == nil {
		out = []ProviderCount{}
	}
	return out, nil
}

// ByStatus counts appointments per status, always listing every status.
func (s *Service) ByStatus(ctx context.Context, r Range) ([]StatusCount, error) {
	records, err := s.store.Appointments(ctx, r.query())
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, rec := range records {
		counts[rec.Status]++
	}
	out := make([]StatusCount, 0, len(appointments.Statuses))
	for _, st := range appointments.Statuses {
		out = append(out, StatusCount{Status: string(st), Count: counts[string(st)]})
	}
	return out, nil
}

// Revenue sums the revenue of scheduled, confirmed and completed appointments.
func (s *Service) Revenue(ctx context.Context, r Range) (*RevenueReport, error) {
	records, err := s.store.Appointments(ctx, r.query(revenueStatuses...))
	if err != nil {
		return nil, err
	}
	byDay := make(map[string]float64)
	report := &RevenueReport{Data: []DayRevenue{}}
	for _, rec := range records {
		byDay[s.day(rec.Start)] += rec.Revenue
		report.TotalRevenue += rec.Revenue
	}
	for _, day := range sortedKeys(byDay) {
		report.Data = append(report.Data, DayRevenue{Date: day, Revenue: round2(byDay[day])})
	}
	report.TotalRevenue = round2(report.TotalRevenue)
	return report, nil
}

// ServicePerformance reports bookings and revenue per service, highest revenue first.
func (s *Service) ServicePerformance(ctx context.Context, r Range) ([]ServiceStats, error) {
	records, err := s.store.Appointments(ctx, r.query(revenueStatuses...))
	if err != nil {
		return nil, err
	}
	index := make(map[string]int)
	var out []ServiceStats
	for _, rec := range records {
		name := rec.ServiceName
		if name == "" {
			name = unassigned
		}
		key := name
		if rec.ServiceID != nil {
			key = rec.ServiceID.String()
		}
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, ServiceStats{ServiceID: rec.ServiceID, Service: name})
		}
		out[i].Bookings++
		out[i].Revenue += rec.Revenue
	}
	for i := range out {
		out[i].Revenue = round2(out[i].Revenue)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Bookings > out[j].Bookings
	})
	if out == nil {
		out = []ServiceStats{}
	}
	return out, nil
}

// Realtime returns the live snapshot, served from Redis when cached.
func (s *Service) Realtime(ctx context.Context, providerID *uuid.UUID) (*Realtime, error) {
	ctx, span := analyticsTracer.Start(ctx, "analytics.realtime")
	defer span.End()

	key := realtimeKey(providerID)
	if cached, ok := s.cachedRealtime(ctx, key); ok {
		return cached, nil
	}

	now := s.now().UTC()
	window, err := s.store.Appointments(ctx, Query{From: now.Add(-24 * time.Hour), To: now.Add(24 * time.Hour), ProviderID: providerID})
	if err != nil {
		return nil, err
	}
	out := &Realtime{TotalToday: len(window), TodayByStatus: make(map[string]int), Timestamp: now}
	var bookedMinutes float64
	for _, rec := range window {
		out.TodayByStatus[rec.Status]++
		if rec.Status != string(appointments.StatusCancelled) && rec.Status != string(appointments.StatusNoShow) {
			bookedMinutes += rec.End.Sub(rec.Start).Minutes()
		}
	}
	out.OccupancyRate = math.Round(math.Min(100, bookedMinutes/workdayMinutes*100)*10) / 10

	current, err := s.store.Current(ctx, now, providerID)
	if err != nil {
		return nil, err
	}
	if current != nil {
		live := s.live(current)
		remaining := int(current.End.Sub(now).Minutes())
		live.MinutesRemaining = &remaining
		out.CurrentAppointment = live
	}
	next, err := s.store.Next(ctx, now, providerID)
	if err != nil {
		return nil, err
	}
	if next != nil {
		live := s.live(next)
		until := int(next.Start.Sub(now).Minutes())
		live.MinutesUntil = &until
		out.NextAppointment = live
	}

	s.cacheRealtime(ctx, key, out)
	return out, nil
}

func (s *Service) cachedRealtime(ctx context.Context, key string) (*Realtime, bool) {
	if s.redis == nil {
		return nil, false
	}
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("realtime cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	var out Realtime
	if err := json.Unmarshal(data, &out); err != nil {
		s.logger.Warn("realtime cache entry unreadable", "key", key, "error", err)
		return nil, false
	}
	return &out, true
}

func (s *Service) cacheRealtime(ctx context.Context, key string, snapshot *Realtime) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, data, s.realtimeTTL).Err(); err != nil {
		s.logger.Warn("realtime cache write failed", "key", key, "error", err)
	}
}

func (s *Service) live(rec *Record) *LiveAppointment {
	title := rec.Title
	if title == "" {
		title = rec.ClientName
	}
	return &LiveAppointment{
		ID:       rec.ID,
		Title:    title,
		Provider: rec.ProviderName,
		Client:   rec.ClientName,
		Start:    rec.Start.In(s.loc),
		End:      rec.End.In(s.loc),
		Status:   rec.Status,
	}
}

func (s *Service) day(t time.Time) string {
	return t.In(s.loc).Format(time.DateOnly)
}

func realtimeKey(providerID *uuid.UUID) string {
	if providerID == nil {
		return "analytics:realtime:all"
	}
	return fmt.Sprintf("analytics:realtime:%s", providerID)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
