// Package bench measures gateway overhead and end-to-end inference
// performance against a running gateway. The inference benchmark streams
// chat completions and records time to first token, total latency and
// token throughput; the gateway benchmark isolates proxy overhead by
// timing the unauthenticated operational endpoints.
package bench
