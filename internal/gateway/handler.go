// HTTP request handling for the inspection proxy.
//
// DESIGN: Main request flow:
//   - handleProxy(): Entry point for every request
//   - inspect():     Normalize the buffered body and publish an event
//   - forward():     Replay the request upstream
//   - relay():       Copy the upstream response back (buffered, or
//     flushed chunk by chunk for event streams)
//
// Inspection never affects forwarding: a body that cannot be parsed, or an
// event that cannot be queued, is logged and the request proceeds.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/compresr/sherlock/internal/adapters"
	"github.com/compresr/sherlock/internal/config"
	"github.com/compresr/sherlock/internal/monitoring"
	"github.com/compresr/sherlock/internal/utils"
)

// writeError writes a JSON error response.
func (g *Gateway) writeError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{"message": msg, "type": "proxy_error"},
	})
}

// handleProxy routes, inspects, and forwards one request.
func (g *Gateway) handleProxy(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	g.metrics.RecordRequest()
	requestID := g.getRequestID(r)
	target := r.URL.RequestURI()

	provider, ok := g.router.Match(target)
	if !ok {
		g.metrics.RecordRoutingMiss()
		log.Warn().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", target).
			Msg("unknown provider for path")
		g.writeError(w, "Unknown provider for path: "+target, http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, g.config.Proxy.MaxBodyBytes))
	if err != nil {
		log.Warn().Err(err).Str("request_id", requestID).Str("provider", provider.Name).Msg("failed to read request body")
		g.writeError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	if len(body) > 0 {
		g.inspect(requestID, provider, target, body)
	}

	resp, err := g.forward(r, provider, target, body)
	if err != nil {
		g.metrics.RecordUpstreamError()
		log.Error().
			Err(err).
			Str("request_id", requestID).
			Str("provider", provider.Name).
			Str("path", target).
			Msg("upstream request failed")
		g.writeError(w, upstreamErrorMessage(err), http.StatusBadGateway)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if err := g.relay(w, resp); err != nil {
		g.metrics.RecordUpstreamError()
		log.Error().
			Err(err).
			Str("request_id", requestID).
			Str("provider", provider.Name).
			Msg("failed to read upstream response")
		g.writeError(w, "Failed to read upstream response", http.StatusBadGateway)
		return
	}

	g.metrics.RecordForwarded()
	log.Info().
		Str("request_id", requestID).
		Str("provider", provider.Name).
		Str("method", r.Method).
		Str("path", target).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("request forwarded")
}

// inspect normalizes the body and publishes an event. Never blocks.
func (g *Gateway) inspect(requestID string, provider config.ProviderConfig, target string, body []byte) {
	if g.normalizer == nil || g.pipeline == nil {
		return
	}

	res, err := g.normalizer.Normalize(adapters.FormatFromString(provider.BodyFormat()), body)
	if err != nil {
		g.metrics.RecordParseFailure()
		log.Warn().
			Err(err).
			Str("request_id", requestID).
			Str("provider", provider.Name).
			Msg("failed to parse request body")
		return
	}

	g.pipeline.Publish(&monitoring.RequestEvent{
		RequestID: requestID,
		Timestamp: time.Now(),
		Provider:  provider.Name,
		Model:     res.Model,
		Tokens:    res.Tokens,
		Messages:  res.Messages,
		RawBody:   json.RawMessage(body),
		Path:      target,
	})
}

// forward replays the request against the provider's base URL.
func (g *Gateway) forward(r *http.Request, provider config.ProviderConfig, target string, body []byte) (*http.Response, error) {
	targetURL := strings.TrimSuffix(provider.BaseURL, "/") + target

	log.Debug().
		Str("targetURL", targetURL).
		Str("x-api-key", utils.MaskKey(r.Header.Get("x-api-key"))).
		Str("authorization", utils.MaskKey(r.Header.Get("Authorization"))).
		Msg("forwarding request")

	var reqBody io.Reader
	if len(body) > 0 {
		reqBody = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(r.Context(), r.Method, targetURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream request: %w", err)
	}
	copyRequestHeaders(httpReq.Header, r.Header)

	return g.httpClient.Do(httpReq)
}

// relay copies the upstream response to the client. Event streams are
// flushed as they arrive; everything else is buffered first so a read
// failure can still be reported as 502. A non-nil error means nothing has
// been written yet.
func (g *Gateway) relay(w http.ResponseWriter, resp *http.Response) error {
	if isEventStream(resp.Header) {
		copyResponseHeaders(w.Header(), resp.Header)
		w.WriteHeader(resp.StatusCode)
		g.streamResponse(w, resp.Body)
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	copyResponseHeaders(w.Header(), resp.Header)
	w.Header().Set("Content-Length", strconv.Itoa(len(respBody)))
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(respBody); err != nil {
		log.Debug().Err(err).Msg("client disconnected")
	}
	return nil
}

// streamResponse streams data from reader to writer with flushing.
func (g *Gateway) streamResponse(w http.ResponseWriter, reader io.Reader) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Warn().Msg("streaming not supported, falling back to buffered")
		_, _ = io.Copy(w, reader)
		return
	}

	buf := make([]byte, DefaultBufferSize)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				log.Debug().Err(writeErr).Msg("client disconnected")
				return
			}
			flusher.Flush()
		}
		if err != nil {
			if err != io.EOF {
				log.Warn().Err(err).Msg("upstream stream interrupted")
			}
			return
		}
	}
}

func isEventStream(h http.Header) bool {
	mediaType, _, err := mime.ParseMediaType(h.Get("Content-Type"))
	return err == nil && mediaType == "text/event-stream"
}

// upstreamErrorMessage is the 502 body text for a transport failure.
func upstreamErrorMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return "Upstream timeout: " + err.Error()
	}
	return "Upstream error: " + err.Error()
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// getRequestID gets or generates a request ID.
func (g *Gateway) getRequestID(r *http.Request) string {
	if id := r.Header.Get(HeaderRequestID); id != "" {
		return id
	}
	return uuid.New().String()
}
