package court

// RequiredServeZone returns the zone a server must stand in. Servers serve
// from the right court on an even score and from the left court on an odd one.
func RequiredServeZone(serverScore int) Zone {
	if serverScore%2 == 0 {
		return MidRight
	}
	return MidLeft
}
