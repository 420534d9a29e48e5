package helpers

// RestrictedDialPolicy blocks premium-rate and very short destinations, the
// kind of override an operator would load through DIAL_POLICY_FILE.
const RestrictedDialPolicy = `
package dial_policy

default decision = "allow"

decision = "block" {
	premium_rate
}

decision = "block" {
	too_short
}

reason = "premium-rate destination" {
	premium_rate
}

reason = "destination too short" {
	too_short
}

premium_rate {
	startswith(input.phone_number, "+1900")
}

premium_rate {
	startswith(input.phone_number, "1900")
}

too_short {
	count(trim_left(input.phone_number, "+")) < 3
}
`
