package queue

import (
	"context"
	"log"
	"sync"
	"time"
)

// Worker processes jobs from a queue
type Worker struct {
	queue      *Queue
	numWorkers int
	wg         sync.WaitGroup
	quit       chan struct{}
}

// NewWorker creates a new worker pool over a queue
func NewWorker(q *Queue, numWorkers int) *Worker {
	return &Worker{
		queue:      q,
		numWorkers: numWorkers,
		quit:       make(chan struct{}),
	}
}

// Start launches the worker goroutines
func (w *Worker) Start() {
	log.Printf("Starting %d queue workers", w.numWorkers)
	for i := 0; i < w.numWorkers; i++ {
		w.wg.Add(1)
		go w.process(i)
	}
}

// Stop signals workers to finish and waits for them
func (w *Worker) Stop() {
	close(w.quit)
	w.wg.Wait()
}

func (w *Worker) process(workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.quit:
			log.Printf("Worker %d stopped", workerID)
			return
		default:
			ctx := context.Background()
			job, err := w.queue.Dequeue(ctx, 1*time.Second)
			if err != nil {
				log.Printf("Error dequeueing job: %v", err)
				time.Sleep(1 * time.Second)
				continue
			}
			if job == nil {
				continue
			}

			handler, ok := w.queue.handlers[job.Type]
			if !ok {
				log.Printf("No handler registered for job type %s, dropping job %s", job.Type, job.ID)
				continue
			}

			if err := handler(ctx, *job); err != nil {
				log.Printf("Error processing job %s: %v", job.ID, err)
				if job.RetryCount < job.MaxRetries {
					if err := w.queue.Requeue(ctx, job); err != nil {
						log.Printf("Error requeueing job %s: %v", job.ID, err)
					}
				} else {
					log.Printf("Job %s exhausted retries, dropping", job.ID)
				}
			}
		}
	}
}
