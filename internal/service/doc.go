// Package service contains the application services that orchestrate domain
// entities, stores and the auth core on behalf of the HTTP handlers.
package service
