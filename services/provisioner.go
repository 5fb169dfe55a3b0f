package services

import (
	"log"
	"time"
	"trip-counter-service/utils"

	"github.com/robfig/cron/v3"
)

// Provisioner pre-creates counter rows for the rolling forward window and
// prunes rows past the retention horizon. It runs once at startup and then
// on the configured cron schedule.
type Provisioner struct {
	store         *CounterStore
	zone          string
	provisionDays int
	retentionDays int
	cron          *cron.Cron
}

// NewProvisioner builds a provisioner; Start schedules it
func NewProvisioner(store *CounterStore, zone string, provisionDays, retentionDays int) *Provisioner {
	return &Provisioner{
		store:         store,
		zone:          zone,
		provisionDays: provisionDays,
		retentionDays: retentionDays,
		cron:          cron.New(),
	}
}

// Start runs one provisioning pass immediately and schedules the daily job
func (p *Provisioner) Start(cronSpec string) error {
	if _, err := p.cron.AddFunc(cronSpec, p.Run); err != nil {
		return err
	}
	p.cron.Start()

	go p.Run()
	return nil
}

// Stop halts the schedule; a running pass finishes
func (p *Provisioner) Stop() {
	p.cron.Stop()
}

// Run executes one provision-and-prune pass
func (p *Provisioner) Run() {
	today, err := utils.TodayInZone(p.zone)
	if err != nil {
		log.Printf("Provisioner: resolve today failed: %v", err)
		return
	}

	dates, err := utils.DateRangeFrom(today, p.provisionDays-1)
	if err != nil {
		log.Printf("Provisioner: build date range failed: %v", err)
		return
	}

	created, err := p.store.ProvisionRange(dates)
	if err != nil {
		log.Printf("Provisioner: provisioning failed after %d row(s): %v", created, err)
	} else if created > 0 {
		log.Printf("Provisioner: created %d counter row(s) through %s", created, dates[len(dates)-1])
	}

	start, err := time.Parse(utils.DateKeyLayout, today)
	if err != nil {
		log.Printf("Provisioner: parse today failed: %v", err)
		return
	}
	cutoff := start.AddDate(0, 0, -p.retentionDays).Format(utils.DateKeyLayout)

	pruned, err := p.store.PruneBefore(cutoff)
	if err != nil {
		log.Printf("Provisioner: prune failed: %v", err)
	} else if pruned > 0 {
		log.Printf("Provisioner: pruned %d counter row(s) before %s", pruned, cutoff)
	}
}
