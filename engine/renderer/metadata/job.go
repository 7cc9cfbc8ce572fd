package metadata

import "context"

/** Definition for the entry point of a job. Returning an error marks the job as failed. */
type JobStart func(ctx context.Context) error

/** @brief Describes a job to be run. */
type JobTask struct {
	/** @brief Used in log lines. */
	Name string
	/** @brief Invoked when the job starts. Required. */
	OnStart JobStart
	/** @brief Invoked when OnStart returns nil. Optional. */
	OnComplete func()
	/** @brief Invoked with the error returned by OnStart. Optional. */
	OnFailure func(err error)
	/** @brief Invoked after OnComplete or OnFailure, whatever the outcome. Optional. */
	OnCompletionCallback func()
}
