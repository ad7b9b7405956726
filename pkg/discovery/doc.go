// Package discovery finds greenhouse controllers and announces the dashboard
// via mDNS/DNS-SD.
//
// Controllers that run an mDNS responder advertise ServiceTypeController.
// When the configured controller host is "auto", the daemon browses for that
// service and uses the first controller that answers. The dashboard itself is
// announced as ServiceTypeDashboard so that other tools on the LAN can find
// its HTTP API.
package discovery
