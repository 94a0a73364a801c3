package camunda

import (
	"testing"

	"shopwhiz/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type nopJobClient struct{}

func (nopJobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 { return nil }
func (nopJobClient) NewFailJobCommand() commands.FailJobCommandStep1         { return nil }
func (nopJobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1   { return nil }

type handlerFunc func(client worker.JobClient, job entities.Job)

func (f handlerFunc) Handle(client worker.JobClient, job entities.Job) { f(client, job) }

func testJob(taskType string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1, Type: taskType, Retries: 3}}
}

func TestInstrument_CountsCompletedJobs(t *testing.T) {
	const taskType = "instrument-complete-test"
	before := testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(taskType))

	var seen *outcomeClient
	h := instrument(taskType, handlerFunc(func(client worker.JobClient, job entities.Job) {
		seen = client.(*outcomeClient)
		client.NewCompleteJobCommand()
	}), nil)
	h(nopJobClient{}, testJob(taskType))

	assert.Equal(t, outcomeCompleted, seen.outcome)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(taskType)))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.WorkerJobsActive.WithLabelValues(taskType)))
}

func TestInstrument_TracksFailureOutcomes(t *testing.T) {
	tests := []struct {
		name string
		call func(worker.JobClient)
		want string
	}{
		{"fail", func(c worker.JobClient) { c.NewFailJobCommand() }, outcomeFailed},
		{"throw", func(c worker.JobClient) { c.NewThrowErrorCommand() }, outcomeThrown},
		{"nothing", func(worker.JobClient) {}, outcomeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			taskType := "instrument-" + tt.name
			before := testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(taskType))

			var seen *outcomeClient
			h := instrument(taskType, handlerFunc(func(client worker.JobClient, job entities.Job) {
				seen = client.(*outcomeClient)
				tt.call(client)
			}), nil)
			h(nopJobClient{}, testJob(taskType))

			assert.Equal(t, tt.want, seen.outcome)
			assert.Equal(t, before, testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(taskType)))
		})
	}
}
