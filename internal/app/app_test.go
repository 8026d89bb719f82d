package app

import (
	"strings"
	"testing"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/campaign"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/config"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/util"
)

func TestCleanupStackRunsInReverse(t *testing.T) {
	var order []string
	var stack cleanupStack
	stack.push(func() { order = append(order, "valkey") })
	stack.push(nil)
	stack.push(func() { order = append(order, "archive") })
	stack.run()

	if strings.Join(order, ",") != "archive,valkey" {
		t.Fatalf("unexpected cleanup order %v", order)
	}
}

func TestProvideCampaignRegistersDailyJobs(t *testing.T) {
	cfg := &config.Config{Schedule: config.ScheduleConfig{
		Timezone: "Africa/Douala",
		Quote:    "07:00",
		News:     "08:00",
		Meme:     "10:00",
		Reveal:   "12:00",
		Quiz:     "21:00",
	}}
	_, scheduler, err := ProvideCampaign(cfg, campaign.Deps{Logger: util.NewDiscardLogger()}, nil)
	if err != nil {
		t.Fatalf("ProvideCampaign failed: %v", err)
	}
	got := strings.Join(scheduler.Jobs(), ",")
	if got != "quote,news,meme,reveal,quiz" {
		t.Fatalf("unexpected jobs %s", got)
	}

	cfg.Schedule.Quiz = "21h00"
	if _, _, err := ProvideCampaign(cfg, campaign.Deps{Logger: util.NewDiscardLogger()}, nil); err == nil {
		t.Fatal("expected invalid clock error")
	}
}
