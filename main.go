package main

import "github.com/dripiq/dripiq-lead-services/cmd"

// @title dripIq Lead Services API
// @version 1.0
// @description Tenant-scoped REST API for managing users, invites, leads and
// @description organization profiles, backed by Postgres and Pulsar.
// @BasePath /api
func main() {
	cmd.Execute()
}
