package observability

const (
	MUsecaseRequests     MetricKey = "usecase_requests_total"
	MUsecaseDuration     MetricKey = "usecase_duration_seconds"
	MHTTPRequests        MetricKey = "http_requests_total"
	MHTTPRequestDuration MetricKey = "http_request_duration_seconds"
	MPaymentOutcomes     MetricKey = "payment_outcomes_total"
	MEventPublishFailed  MetricKey = "event_publish_failed_total"
)
