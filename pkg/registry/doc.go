// Package registry provides a typed HTTP client for a remote module registry.
//
// # Overview
//
// The registry exposes four endpoints under /api/v0. [Client] wraps each one
// in a method that performs exactly one request and returns a fully decoded
// result or a single error:
//
//   - [Client.VerifySession]: GET /api/v0/whoami
//   - [Client.PublishModule]: POST /api/v0/publish/{name}
//   - [Client.DownloadModule]: GET /api/v0/dl/{module}/{version}
//   - [Client.QueryModule]: GET /api/v0/info/{module}
//
// Usage:
//
//	client, err := registry.New("https://registry.example")
//	if err != nil {
//	    return err
//	}
//	client.Authenticate(token)
//
//	user, err := client.VerifySession(ctx)
//
// # Authentication
//
// A session token is an opaque string. Once [Client.Authenticate] has been
// called, every request carries it in the Auth header; before that, no
// request does. [RandomSessionToken] mints a fresh 32 character handle for
// a login flow; the registry must still approve it before it authenticates
// anyone.
//
// # Response Envelope
//
// Every response body is a JSON envelope discriminated by the boolean
// "success" field:
//
//	{"success": true,  "data": <result>}
//	{"success": false, "message": "<reason>"}
//
// The HTTP status code is not consulted; an error envelope is reported even
// when it arrives with 200 OK, and a success envelope is decoded even when
// it arrives with a non-2xx status.
//
// # Errors
//
// Failures carry one code from [github.com/matzehuels/modreg/pkg/errors]:
//
//   - INVALID_URL: a URL did not parse
//   - REQUEST_BUILD: the request or its body could not be assembled
//   - TRANSPORT_INIT: the transport could not be constructed
//   - TRANSPORT: the exchange failed before a body was read
//   - DECODE: the body is not an envelope, or data has the wrong shape
//   - APPLICATION: the registry answered with an error envelope
//
// APPLICATION and TRANSPORT are deliberately distinct: the former is a
// completed exchange carrying a business failure whose message is safe to
// show to users verbatim.
//
// # Transport
//
// [Transport] is the only network-facing dependency. [HTTPTransport] adapts
// an *http.Client; tests substitute a [TransportFunc]. The client adds no
// retries, caching or timeouts of its own. Deadlines come from the context
// passed to each call or from the *http.Client supplied by the caller.
package registry
