// Package downstream defines the social-connect collaborator that receives a
// verified access token together with the wallet address it should be linked to.
//
// Implementations are provided in subpackages:
//   - downstream/firestarter: HTTP client for the FireStarter social-connect API
//   - downstream/mock: a stand-in FireStarter service (HTTP handler) and an
//     in-process Connector with identical behaviour, for local runs and tests
//
// The connector response body is relayed to the original caller verbatim, so
// ConnectResult keeps it as raw JSON rather than decoding it.
package downstream
