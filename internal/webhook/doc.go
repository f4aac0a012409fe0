// Package webhook implements the GitHub webhook gateway: it verifies
// HMAC-SHA256 signatures, suppresses known automated pushes and relays the
// rest to a single downstream receiver.
//
// # Security Model
//
//   - Signatures verified with crypto/subtle (constant-time comparison)
//   - A missing signature is compared as the literal "missing" and fails
//   - Body size limits enforced before signature verification
//   - No signature details leaked in error responses (always generic 403)
//   - Request logging excludes payloads and the secret
//
// # Configuration
//
// The gateway is configured in config.yaml:
//
//	server:
//	  listen: "127.0.0.1:5000"
//	filter:
//	  path: /webhook
//	  secret: ${GITHUB_WEBHOOK_SECRET}
//	  target_uri: http://127.0.0.1:8080/hooks/github
//	forward:
//	  connect_timeout: 5s
//	  timeout: 30s
//
// # Request Flow
//
//  1. Path and method checked (404 / 405)
//  2. Body size checked (413 if too large)
//  3. X-Hub-Signature-256 verified (403 on mismatch)
//  4. Delivery recorded when X-GitHub-Delivery is a sane ID
//  5. Body parsed as JSON (400 if malformed)
//  6. Suppression rules evaluated (200 without forwarding on match)
//  7. Allow-listed headers and the exact body POSTed to target_uri
//  8. 200 on any downstream status, 504 on timeout, 502 on connect failure
//
// # Example Usage
//
//	cfg, err := webhook.FromGlobalConfig(globalCfg)
//	if err != nil {
//		return err
//	}
//	server := webhook.New(cfg, store, logger)
//	if err := server.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
package webhook
