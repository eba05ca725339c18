package main

//go:generate swag init -g main.go -d ../../ -o ../../docs

// @title carbondesk API
// @version 1.0
// @description Carbon project estimates and credit retirement orders.
// @BasePath /
