package main

//go:generate swag init -g cmd/journal/main.go -o docs

// @title           Risk Journal API
// @version         0.1.0
// @description     Journal entries, risk lifecycle, and pattern reports.
// @host            localhost:8090
// @BasePath        /
// @schemes         http
