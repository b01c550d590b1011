// Package handlers implements the document API: verification and encrypted document storage.
//
// Every route here is behind the origin policy and the API key gate (see server.registerRoutes).
package handlers
