package metadata

/** Definition for the body of a job. Results are sent on the provided channel. */
type JobStart func(params interface{}, results chan<- interface{}) error

/** Definition for completion of a job. */
type JobOnComplete func(results <-chan interface{})

/**
 * @brief Describes a job to be run by the job system.
 */
type JobTask struct {
	/** @brief Data to be passed to the entry point upon execution. */
	InputParams interface{}
	/** @brief Invoked on a worker when the job starts. Required. */
	OnStart JobStart
	/** @brief Invoked when the job successfully completes. Optional. */
	OnComplete JobOnComplete
	/** @brief Invoked when the job fails. Optional. */
	OnFailure JobOnComplete
	/** @brief Invoked after either of the above. Optional. */
	OnCompletionCallback func()
}
