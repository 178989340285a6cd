package net

const (
	DefaultPort           = 6000
	DefaultListenAddress  = ":6000"
	DefaultConnectAddress = "http://localhost:6000"

	RPCContentType = "application/json"

	ServicesPath = "/services"
)
