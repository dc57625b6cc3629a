package queue

// IsSafeToDelete reports whether the bucket candidate, full or partial, lies
// strictly before nowBucket at candidate's granularity. Segments are zero
// padded and most significant first, so a truncated byte comparison matches
// calendar order.
func IsSafeToDelete(nowBucket, candidate string) bool {
	if len(nowBucket) < len(candidate) {
		return false
	}
	return nowBucket[:len(candidate)] > candidate
}
