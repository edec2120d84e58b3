package fiberop

// cacheLineSize is the platform's destructive-interference unit, reused here
// as the smallest Pool tier's size-class boundary. Go has no builtin
// equivalent of C++'s std::hardware_destructive_interference_size, so 64
// bytes is used as the portable default, matching the common case (x86-64,
// most ARM64).
const cacheLineSize = 64

// poolTierCount is the number of BlockPool size tiers a Pool composes,
// with block sizes cacheLineSize * 2^0 .. cacheLineSize * 2^(poolTierCount-1).
const poolTierCount = 7
