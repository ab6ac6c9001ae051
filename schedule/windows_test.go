package schedule_test

import (
	"testing"
	"time"

	"github.com/xraph/booking/id"
	"github.com/xraph/booking/schedule"
)

// 2026-03-02 is a Monday.
var monday = schedule.Date{Year: 2026, Month: time.March, Day: 2}

func fixture() (*schedule.Service, *schedule.Resource) {
	svc := &schedule.Service{ID: id.NewServiceID(), Name: "Yoga", Capacity: 10, Duration: time.Hour}
	res := &schedule.Resource{ID: id.NewResourceID(), Name: "Studio A"}
	return svc, res
}

func weekly(res *schedule.Resource, wd time.Weekday, start, end schedule.TimeOfDay) *schedule.Rule {
	return &schedule.Rule{ResourceID: res.ID, Kind: schedule.RuleWeekly, Weekday: wd, Start: start, End: end}
}

func at(d schedule.Date, h, m int) time.Time {
	return d.At(schedule.Clock(h, m), time.UTC)
}

func TestResolveWindows(t *testing.T) {
	svc, res := fixture()
	other := id.NewServiceID()
	tuesday := monday.AddDays(1)

	tests := []struct {
		name string
		cal  schedule.Calendar
		from time.Time
		to   time.Time
		want []schedule.Window
	}{
		{
			name: "weekly rule on matching day",
			cal: schedule.Calendar{Rules: []*schedule.Rule{
				weekly(res, time.Monday, schedule.Clock(9, 0), schedule.Clock(12, 0)),
			}},
			from: at(monday, 0, 0), to: at(monday.AddDays(7), 0, 0),
			want: []schedule.Window{{Start: at(monday, 9, 0), End: at(monday, 12, 0)}},
		},
		{
			name: "rule for another service ignored",
			cal: schedule.Calendar{Rules: []*schedule.Rule{
				{ResourceID: res.ID, ServiceID: other, Kind: schedule.RuleWeekly, Weekday: time.Monday, Start: schedule.Clock(9, 0), End: schedule.Clock(12, 0)},
			}},
			from: at(monday, 0, 0), to: at(tuesday, 0, 0),
			want: nil,
		},
		{
			name: "overlapping rules merge",
			cal: schedule.Calendar{Rules: []*schedule.Rule{
				weekly(res, time.Monday, schedule.Clock(9, 0), schedule.Clock(12, 0)),
				weekly(res, time.Monday, schedule.Clock(11, 0), schedule.Clock(14, 0)),
				weekly(res, time.Monday, schedule.Clock(16, 0), schedule.Clock(18, 0)),
			}},
			from: at(monday, 0, 0), to: at(tuesday, 0, 0),
			want: []schedule.Window{
				{Start: at(monday, 9, 0), End: at(monday, 14, 0)},
				{Start: at(monday, 16, 0), End: at(monday, 18, 0)},
			},
		},
		{
			name: "date rule adds to weekly rules",
			cal: schedule.Calendar{Rules: []*schedule.Rule{
				weekly(res, time.Monday, schedule.Clock(9, 0), schedule.Clock(10, 0)),
				{ResourceID: res.ID, Kind: schedule.RuleDate, Date: monday, Start: schedule.Clock(18, 0), End: schedule.Clock(19, 0)},
			}},
			from: at(monday, 0, 0), to: at(tuesday, 0, 0),
			want: []schedule.Window{
				{Start: at(monday, 9, 0), End: at(monday, 10, 0)},
				{Start: at(monday, 18, 0), End: at(monday, 19, 0)},
			},
		},
		{
			name: "blackout closes the date",
			cal: schedule.Calendar{
				Rules: []*schedule.Rule{weekly(res, time.Monday, schedule.Clock(9, 0), schedule.Clock(12, 0))},
				Exceptions: []*schedule.Exception{
					{ResourceID: res.ID, Date: monday, Kind: schedule.ExceptionBlackout},
					{ResourceID: res.ID, Date: monday, Kind: schedule.ExceptionAddition, Start: schedule.Clock(13, 0), End: schedule.Clock(14, 0)},
				},
			},
			from: at(monday, 0, 0), to: at(tuesday, 0, 0),
			want: nil,
		},
		{
			name: "addition replaces recurring windows",
			cal: schedule.Calendar{
				Rules: []*schedule.Rule{weekly(res, time.Monday, schedule.Clock(9, 0), schedule.Clock(12, 0))},
				Exceptions: []*schedule.Exception{
					{ResourceID: res.ID, Date: monday, Kind: schedule.ExceptionAddition, Start: schedule.Clock(15, 0), End: schedule.Clock(17, 0)},
				},
			},
			from: at(monday, 0, 0), to: at(tuesday, 0, 0),
			want: []schedule.Window{{Start: at(monday, 15, 0), End: at(monday, 17, 0)}},
		},
		{
			name: "exception on another date leaves rules alone",
			cal: schedule.Calendar{
				Rules:      []*schedule.Rule{weekly(res, time.Monday, schedule.Clock(9, 0), schedule.Clock(10, 0))},
				Exceptions: []*schedule.Exception{{ResourceID: res.ID, Date: tuesday, Kind: schedule.ExceptionBlackout}},
			},
			from: at(monday, 0, 0), to: at(tuesday.AddDays(1), 0, 0),
			want: []schedule.Window{{Start: at(monday, 9, 0), End: at(monday, 10, 0)}},
		},
		{
			name: "windows clipped to range",
			cal: schedule.Calendar{Rules: []*schedule.Rule{
				weekly(res, time.Monday, schedule.Clock(9, 0), schedule.Clock(12, 0)),
			}},
			from: at(monday, 10, 0), to: at(monday, 11, 0),
			want: []schedule.Window{{Start: at(monday, 10, 0), End: at(monday, 11, 0)}},
		},
		{
			name: "window until midnight",
			cal: schedule.Calendar{Rules: []*schedule.Rule{
				weekly(res, time.Monday, schedule.Clock(22, 0), schedule.EndOfDay),
			}},
			from: at(monday, 0, 0), to: at(tuesday, 0, 0),
			want: []schedule.Window{{Start: at(monday, 22, 0), End: at(tuesday, 0, 0)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := schedule.ResolveWindows(svc, res, tt.cal, tt.from, tt.to)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d windows %v, want %d %v", len(got), got, len(tt.want), tt.want)
			}
			for i := range got {
				if !got[i].Start.Equal(tt.want[i].Start) || !got[i].End.Equal(tt.want[i].End) {
					t.Errorf("window %d: got %v-%v, want %v-%v", i, got[i].Start, got[i].End, tt.want[i].Start, tt.want[i].End)
				}
			}
		})
	}
}

func TestResolveWindowsLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/Mexico_City")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	svc, res := fixture()
	cal := schedule.Calendar{
		Rules:    []*schedule.Rule{weekly(res, time.Monday, schedule.Clock(9, 0), schedule.Clock(10, 0))},
		Location: loc,
	}

	got := schedule.ResolveWindows(svc, res, cal, monday.At(0, loc), monday.AddDays(1).At(0, loc))
	if len(got) != 1 {
		t.Fatalf("got %d windows, want 1", len(got))
	}
	if want := time.Date(2026, 3, 2, 9, 0, 0, 0, loc); !got[0].Start.Equal(want) {
		t.Errorf("start: got %v, want %v", got[0].Start, want)
	}
}

func TestPolicyIsLate(t *testing.T) {
	start := at(monday, 10, 0)
	p := schedule.Policy{CancelCutoff: 12 * time.Hour}

	if p.IsLate(start, at(monday, 9, 0).Add(-24*time.Hour)) {
		t.Error("a day ahead should not be late")
	}
	if !p.IsLate(start, at(monday, 8, 0)) {
		t.Error("two hours ahead should be late")
	}
	if (schedule.Policy{}).IsLate(start, start) {
		t.Error("no cutoff is never late")
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    schedule.TimeOfDay
		wantErr bool
	}{
		{"09:30", schedule.Clock(9, 30), false},
		{"00:00", 0, false},
		{"24:00", schedule.EndOfDay, false},
		{"24:01", 0, true},
		{"9:75", 0, true},
		{"noon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := schedule.ParseTimeOfDay(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDate(t *testing.T) {
	d, err := schedule.ParseDate("2026-02-28")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if next := d.AddDays(1); next.String() != "2026-03-01" {
		t.Errorf("AddDays: got %s", next)
	}
	if d.Weekday() != time.Saturday {
		t.Errorf("weekday: got %v", d.Weekday())
	}
	if !d.Before(monday) || monday.Before(d) {
		t.Error("Before ordering is wrong")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		field string
	}{
		{"service without name", (&schedule.Service{Capacity: 1, Duration: time.Hour}).Validate(), "name"},
		{"service zero capacity", (&schedule.Service{Name: "x", Duration: time.Hour}).Validate(), "capacity"},
		{"service fractional duration", (&schedule.Service{Name: "x", Capacity: 1, Duration: 90 * time.Second}).Validate(), "duration"},
		{"fee without amount", (&schedule.Service{Name: "x", Capacity: 1, Duration: time.Hour,
			Policy: schedule.Policy{LatePenalty: schedule.PenaltyFee}}).Validate(), "policy.late_fee"},
		{"rule inverted", (&schedule.Rule{ResourceID: id.NewResourceID(), Kind: schedule.RuleWeekly,
			Start: schedule.Clock(12, 0), End: schedule.Clock(9, 0)}).Validate(), "end"},
		{"rule unknown kind", (&schedule.Rule{ResourceID: id.NewResourceID(), Kind: "monthly"}).Validate(), "kind"},
		{"exception without date", (&schedule.Exception{ResourceID: id.NewResourceID(), Kind: schedule.ExceptionBlackout}).Validate(), "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe, ok := tt.err.(*schedule.FieldError)
			if !ok {
				t.Fatalf("expected *FieldError, got %v", tt.err)
			}
			if fe.Field != tt.field {
				t.Errorf("field: got %q, want %q", fe.Field, tt.field)
			}
		})
	}

	ok := &schedule.Service{Name: "Pilates", Capacity: 8, Duration: 50 * time.Minute}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid service rejected: %v", err)
	}
}
