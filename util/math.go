package util

// AddUint64 饱和加法, 结果不超过limit; 溢出(或超过limit)时返回limit和false
func AddUint64(a, b, limit uint64) (uint64, bool) {
	if a > limit || b > limit-a {
		return limit, false
	}
	return a + b, true
}
