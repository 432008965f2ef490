package cron

import (
	"context"
	"log"
	"time"

	"verial/config"
	"verial/services/payments"

	"github.com/hibiken/asynq"
)

const TypeRefundReconcile = "refund:reconcile"

// InitRefundRepairWorker runs the stuck-refund reconciliation worker in the
// background: refunds left in "processing" by gateway timeouts or crashes are
// finalized from the gateway's terminal status.
func InitRefundRepairWorker(repairer *payments.RefundRepairer) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeRefundReconcile, handleRefundReconcileTask(repairer))

	go schedulePeriodicReconcile(redisOpts)

	go func() {
		log.Println("[RefundRepairWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[RefundRepairWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[RefundRepairWorker] max retry attempts reached, exiting")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

func handleRefundReconcileTask(repairer *payments.RefundRepairer) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		threshold := time.Duration(config.AppConfig.RefundRepairThresholdMin) * time.Minute

		repaired, err := repairer.RepairStuck(ctx, threshold)
		if err != nil {
			log.Printf("[RefundRepairWorker] reconciliation pass failed: %v", err)
			return err
		}
		if repaired > 0 {
			log.Printf("[RefundRepairWorker] repaired %d stuck refund(s)", repaired)
		}
		return nil
	}
}

// schedulePeriodicReconcile enqueues a reconciliation task on a fixed
// interval.
func schedulePeriodicReconcile(redisOpts asynq.RedisClientOpt) {
	client := asynq.NewClient(redisOpts)
	defer client.Close()

	interval := time.Duration(config.AppConfig.RefundRepairIntervalMin) * time.Minute
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		task := asynq.NewTask(TypeRefundReconcile, nil)
		if _, err := client.Enqueue(task, asynq.MaxRetry(3), asynq.Unique(interval)); err != nil {
			log.Printf("[RefundRepairWorker] failed to enqueue reconciliation task: %v", err)
		}
	}
}
