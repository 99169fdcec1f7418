// Package rate implements the Redis fixed-window counters behind OTP request
// cooldowns.
//
// # Window semantics
//
// INCR + EXPIRE on the first hit of a window. Key prefixes:
//   - <prefix>:otp:<purpose>:<email> : OTP requests per address
//   - <prefix>:otpip:<purpose>:<ip>  : OTP requests per client IP
package rate
