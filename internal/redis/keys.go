package redis

import "fmt"

const ns = "letspark:v1"

func KeyPremise(premiseID int64) string {
	return fmt.Sprintf("%s:premise:%d", ns, premiseID)
}

// KeyPremiseListGen holds a counter bumped on every premise change. List
// keys embed it, so a bump orphans every cached page at once.
func KeyPremiseListGen() string {
	return ns + ":premises:gen"
}

func KeyPremiseList(gen int64, limit, offset int) string {
	return fmt.Sprintf("%s:premises:%d:%d:%d", ns, gen, limit, offset)
}

func KeyIdemBooking(userID int64, idemKey string) string {
	return fmt.Sprintf("%s:idem:bookings:%d:%s", ns, userID, idemKey)
}
