package scheduler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dotsetgreg/agenthost/pkg/bus"
	"github.com/dotsetgreg/agenthost/pkg/schema"
)

func testReference() schema.ConversationReference {
	return schema.ConversationReference{
		User:         schema.ChannelAccount{ID: "user-1"},
		Agent:        schema.ChannelAccount{ID: "agent"},
		Conversation: schema.ConversationAccount{ID: "conv-1"},
		ChannelID:    "test",
	}
}

func TestService_FiresDueJobAndReschedules(t *testing.T) {
	b := bus.NewActivityBus()
	defer b.Close()
	s := NewService(filepath.Join(t.TempDir(), "jobs.json"), b, time.Second)

	job, err := s.AddJob("reminder", Schedule{Kind: KindEvery, EveryMS: 50}, "drink water", testReference())
	if err != nil {
		t.Fatal(err)
	}
	if job.State.NextRunMS == 0 {
		t.Fatal("next run not scheduled")
	}

	s.onTick(time.Now().Add(time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	a, ok := b.SubscribeOutbound(ctx)
	if !ok {
		t.Fatal("no proactive activity published")
	}
	if a.Text != "drink water" || a.ChannelID != "test" || a.Conversation.ID != "conv-1" {
		t.Fatalf("activity = %+v", a)
	}
	if a.Recipient.ID != "user-1" {
		t.Fatalf("recipient = %+v, reference not applied outgoing", a.Recipient)
	}

	fired := s.ListJobs()[0]
	if fired.State.RunCount != 1 || fired.State.LastRunMS == 0 {
		t.Fatalf("job state = %+v", fired.State)
	}
	if fired.State.NextRunMS <= fired.State.LastRunMS {
		t.Fatalf("job was not rescheduled: %+v", fired.State)
	}
}

func TestService_JobsPersistAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	b := bus.NewActivityBus()
	defer b.Close()

	s := NewService(path, b, time.Second)
	if _, err := s.AddJob("daily", Schedule{Kind: KindCron, Expr: "0 9 * * *"}, "standup", testReference()); err != nil {
		t.Fatal(err)
	}

	restarted := NewService(path, b, time.Second)
	if err := restarted.Load(); err != nil {
		t.Fatal(err)
	}
	jobs := restarted.ListJobs()
	if len(jobs) != 1 || jobs[0].Name != "daily" {
		t.Fatalf("jobs after restart = %+v", jobs)
	}
	if jobs[0].Schedule.Expr != "0 9 * * *" {
		t.Fatalf("schedule = %+v", jobs[0].Schedule)
	}
}

func TestService_RejectsBadSchedules(t *testing.T) {
	b := bus.NewActivityBus()
	defer b.Close()
	s := NewService(filepath.Join(t.TempDir(), "jobs.json"), b, time.Second)

	if _, err := s.AddJob("bad", Schedule{Kind: KindCron, Expr: "not a cron"}, "m", testReference()); err == nil {
		t.Fatal("invalid cron expression accepted")
	}
	if _, err := s.AddJob("bad", Schedule{Kind: KindEvery, EveryMS: 0}, "m", testReference()); err == nil {
		t.Fatal("zero interval accepted")
	}
	if _, err := s.AddJob("bad", Schedule{Kind: "sometimes"}, "m", testReference()); err == nil {
		t.Fatal("unknown kind accepted")
	}
}

func TestService_RemoveAndDisable(t *testing.T) {
	b := bus.NewActivityBus()
	defer b.Close()
	s := NewService(filepath.Join(t.TempDir(), "jobs.json"), b, time.Second)

	job, err := s.AddJob("tmp", Schedule{Kind: KindEvery, EveryMS: 1000}, "m", testReference())
	if err != nil {
		t.Fatal(err)
	}

	if err := s.EnableJob(job.ID, false); err != nil {
		t.Fatal(err)
	}
	s.onTick(time.Now().Add(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, ok := b.SubscribeOutbound(ctx); ok {
		t.Fatal("disabled job fired")
	}

	if err := s.RemoveJob(job.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveJob(job.ID); err == nil {
		t.Fatal("removing a missing job must fail")
	}
	if len(s.ListJobs()) != 0 {
		t.Fatal("job store not empty")
	}
}
