package config

import (
	"net"
	"os"
	"sync"
)

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker returns true if the profiler is running inside a Docker container.
// Detection is based on the presence of /.dockerenv. The result is cached.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// ResolveHostPortForDocker rewrites a loopback host in a "host:port" address to
// host.docker.internal when running in Docker, so a containerized worker can
// reach a Temporal frontend published on the host machine.
// Addresses without a port are treated as a bare host.
func ResolveHostPortForDocker(hostPort string) string {
	if !IsRunningInDocker() {
		return hostPort
	}

	host, port, err := net.SplitHostPort(hostPort)
	if err != nil {
		host, port = hostPort, ""
	}
	if host != "localhost" && host != "127.0.0.1" {
		return hostPort
	}
	if port == "" {
		return "host.docker.internal"
	}
	return net.JoinHostPort("host.docker.internal", port)
}
