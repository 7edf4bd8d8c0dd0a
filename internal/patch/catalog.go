package patch

// The three known pyhula defects this tool exists for. Marker tokens are
// unique per target and never occur in unpatched source.

const (
	MarkerMavlinkHeader = "# PYHULA_PATCH_APPLIED"
	MarkerUDPBinding    = "# PYHULA_UDP_PATCH_APPLIED"
	MarkerUserAPI       = "# PYHULA_USERAPI_PATCH_APPLIED"
)

// mavlinkPackReplacement hardens MAVLink_header.pack against non-integer
// attribute values, which crash struct.pack on some firmware responses.
const mavlinkPackReplacement = `def pack(self, force_mavlink1=False):
    """
    pack the MAVLink header into a byte string
    """
    # PYHULA_PATCH_APPLIED: Fix struct packing with proper integer conversion
    try:
        magic = int(self.magic) if hasattr(self, 'magic') else 254
        length = int(self.length) if hasattr(self, 'length') else 0
        seq = int(self.seq) if hasattr(self, 'seq') else 0
        srcSystem = int(self.srcSystem) if hasattr(self, 'srcSystem') else 255
        srcComponent = int(self.srcComponent) if hasattr(self, 'srcComponent') else 190
        msgId = int(self.msgId) if hasattr(self, 'msgId') else 0
        return struct.pack('<BBBBBB', magic, length, seq, srcSystem, srcComponent, msgId)
    except (ValueError, TypeError) as e:
        print(f"MAVLink header pack warning: {e}, using defaults")
        return struct.pack('<BBBBBB', 254, 0, 0, 255, 190, 0)`

// userAPIConnectReplacement makes UserApi.connect report failures instead
// of raising, with troubleshooting guidance for the common network setups.
const userAPIConnectReplacement = `def connect(self, server_ip="192.168.100.1"):
    """
    connect to the drone with robust error handling
    """
    # PYHULA_USERAPI_PATCH_APPLIED
    try:
        print(f"Connecting to drone at {server_ip}...")
        result = self._control_server.connect(server_ip)
        if result:
            print("Connection established")
        else:
            print("Connection failed - no response from drone")
        return result
    except Exception as e:
        print(f"Connection error: {e}")
        print("Troubleshooting:")
        print(f"1. Verify drone is at IP: {server_ip}")
        print("2. Check WiFi connection to drone network")
        print("3. Ensure drone is powered and in AP mode")
        return False`

// Catalog returns the fixed, ordered target list. Callers must not mutate
// the returned targets.
func Catalog() []Target {
	return []Target{
		{
			ID:          "mavlink-header-fix",
			Name:        "MAVLink Header Fix",
			RelPath:     "pypack/fylo/mavlink.py",
			Marker:      MarkerMavlinkHeader,
			Kind:        KindMethodBody,
			Pattern:     "def pack(self, force_mavlink1=False):",
			Replacement: mavlinkPackReplacement,
		},
		{
			ID:      "udp-binding-fix",
			Name:    "UDP Binding Fix",
			RelPath: "pypack/system/taskcontroller.py",
			Marker:  MarkerUDPBinding,
			Kind:    KindInlineStatement,
			Variants: []string{
				`self.sock.bind(('', self.listen_port))`,
				`self.sock.bind(("", self.listen_port))`,
				`sock.bind(('', port))`,
				`sock.bind(("", port))`,
			},
		},
		{
			ID:          "userapi-connection-fix",
			Name:        "UserApi Connection Fix",
			RelPath:     "userapi.py",
			Marker:      MarkerUserAPI,
			Kind:        KindMethodBody,
			Pattern:     `def connect(self, server_ip="192.168.100.1"):`,
			Replacement: userAPIConnectReplacement,
		},
	}
}

// RelPaths lists the relative file paths of every catalog target, in
// catalog order. This is the backup set.
func RelPaths(targets []Target) []string {
	paths := make([]string, 0, len(targets))
	for _, t := range targets {
		paths = append(paths, t.RelPath)
	}
	return paths
}
