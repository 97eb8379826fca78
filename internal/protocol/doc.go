// Package protocol groups the route-netlink wire primitives used by nlprobe.
//
// Ownership boundary:
// - frame: nlmsghdr codec, message types, flags, error payloads
// - attr: rtattr codec and the attribute walker
// - link: ifinfomsg codec, link request builders, link attribute parsing
// - stream: response aggregation over multipart replies
package protocol
