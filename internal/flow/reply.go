package flow

import (
	"fmt"
	"strings"

	"github.com/bettask/backend/internal/models"
	"github.com/bettask/backend/internal/verify"
)

func replyGreeting(user *models.User) string {
	name := "there"
	if user.DisplayName != nil && *user.DisplayName != "" {
		name = *user.DisplayName
	}
	return fmt.Sprintf("Hey %s! Ready to put money on your goals?\n\n%s", name, replyHelp())
}

func replyHelp() string {
	return strings.Join([]string{
		"Here's what I can do:",
		"• Create a challenge: \"I will go to the gym today\"",
		"• Claim completion: \"done\" (then send a photo as proof)",
		"• Check balance: \"balance\"",
		"• List challenges: \"my challenges\"",
		"• Add money: \"add money\"",
		"• Withdraw: \"withdraw\"",
		"• Drop out of any flow: \"cancel\"",
	}, "\n")
}

func replyUnknown() string {
	return "Sorry, I didn't get that. Say \"help\" to see what I can do."
}

func replyNothingToCancel() string {
	return "Nothing to cancel right now."
}

func replyFlowCancelled() string {
	return "Cancelled. Say \"help\" whenever you need the menu."
}

func replyBalance(paise int64) string {
	return fmt.Sprintf("Your balance is %s.", models.FormatINR(paise))
}

func replyChallengeList(list []*models.Challenge) string {
	if len(list) == 0 {
		return "You have no active challenges. Start one by telling me your goal!"
	}
	var b strings.Builder
	b.WriteString("Your active challenges:\n")
	for i, c := range list {
		fmt.Fprintf(&b, "%d. %s - stake %s, due %s\n", i+1, c.Goal, models.FormatINR(c.StakePaise), c.Deadline.Format("Jan 2 15:04"))
	}
	return strings.TrimRight(b.String(), "\n")
}

// registration

func replyWelcomeNewUser() string {
	return "Welcome to BetTask! You bet on yourself: stake money on a goal, prove you did it, win double back.\n\nLet's set you up. What's your email?"
}

func replyAskEmailAgain() string {
	return "That doesn't look like an email address. Please send your email."
}

func replyEmailTaken() string {
	return "That email is already registered with another number. Please send a different one."
}

func replyAskName() string {
	return "Got it. What should I call you?"
}

func replyConfirmRegistration(name, email string) string {
	return fmt.Sprintf("Creating your account:\nName: %s\nEmail: %s\n\nAll good? (yes/no)", name, email)
}

func replyRegistrationDone(name string) string {
	return fmt.Sprintf("You're in, %s! Say \"add money\" to fund your wallet, or tell me a goal to start your first challenge.", name)
}

func replyRegistrationCancelled() string {
	return "No problem. Message me whenever you want to sign up."
}

func replyRegisterFirst() string {
	return "Let's get you registered before anything else. What's your email?"
}

func replyYesOrNo() string {
	return "Please answer yes or no."
}

// challenge creation

func replyTooManyChallenges(max int) string {
	return fmt.Sprintf("You already have %d challenges running. Finish one (say \"done\") before starting another.", max)
}

func replyAskGoal() string {
	return "What's the goal? Describe it in one line, e.g. \"go to the gym\"."
}

func replyAskStake() string {
	return "How much do you want to stake on it? Send an amount like 100, or \"all\" to stake your whole balance."
}

func replyAskStakeAgain() string {
	return "I need a stake amount. Send a number like 100, or \"all\"."
}

func replyAskFrequency() string {
	return "How often? Reply daily, weekly, twice a week, thrice a week - or \"skip\" to keep it one-time."
}

func replyConfirmChallenge(goal, stakeText, frequency string) string {
	rec := "one-time"
	if frequency != "" {
		rec = frequency
	}
	return fmt.Sprintf("Locking it in:\nGoal: %s\nStake: %s\nSchedule: %s\n\nThe stake leaves your wallet now and comes back doubled when you prove it. Reply yes to confirm, no to drop it - or daily/weekly to make it recurring.", goal, stakeText, rec)
}

func replyChallengeCreated(c *models.Challenge) string {
	return fmt.Sprintf("Challenge on! %s for %s, due by %s. Say \"done\" when you've finished and have proof ready.",
		c.Goal, models.FormatINR(c.StakePaise), c.Deadline.Format("Jan 2 15:04"))
}

func replyChallengeCancelled() string {
	return "Challenge scrapped. Your wallet is untouched."
}

func replyInsufficientBalance(balancePaise int64) string {
	return fmt.Sprintf("Your balance (%s) doesn't cover that stake. Send a smaller amount, or \"cancel\" and top up first.", models.FormatINR(balancePaise))
}

// completion and verification

func replyNoActiveChallenges() string {
	return "You have no active challenges to complete."
}

func replySelectChallenge(list []*models.Challenge) string {
	var b strings.Builder
	b.WriteString("Which one did you complete?\n")
	for i, c := range list {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, c.Goal, models.FormatINR(c.StakePaise))
	}
	b.WriteString("Reply with the number.")
	return b.String()
}

func replyPickByNumber() string {
	return "Please reply with the number of the challenge."
}

func replySendProof(goal string) string {
	if goal == "" {
		return "Send me a photo as proof and I'll verify it."
	}
	return fmt.Sprintf("Nice! Send me a photo proving %q. Make sure it clearly shows it's from today.", goal)
}

func replyVerification(out *verify.Outcome, c *models.Challenge) string {
	switch out.Result {
	case verify.ResultPassed:
		return fmt.Sprintf("Verified! %q completed. %s landed in your wallet. 🎉", c.Goal, models.FormatINR(out.RewardPaise))
	case verify.ResultFailedForfeit:
		return fmt.Sprintf("That didn't pass verification and you're out of attempts. The challenge is marked failed and the %s stake is forfeited.", models.FormatINR(c.StakePaise))
	case verify.ResultRetryTimestamp:
		return fmt.Sprintf("I couldn't confirm the photo is from today (%s). %d attempt(s) left - try a photo with a visible date or a fresh screenshot.", out.Explanation, out.Remaining)
	case verify.ResultRetryContent:
		return fmt.Sprintf("The photo doesn't look related to your goal (%s). %d attempt(s) left.", out.Explanation, out.Remaining)
	default:
		return replyTryAgainLater()
	}
}

func replyUnexpectedMedia() string {
	return "I wasn't expecting a photo right now. Say \"done\" first if you're submitting proof, or \"add money\" if this is a payment screenshot."
}

func replyTryAgainLater() string {
	return "I'm having trouble processing that right now. Please try again in a few minutes."
}

// funding

func replyAskDepositAmount(minPaise, maxPaise int64) string {
	return fmt.Sprintf("How much do you want to add? (between %s and %s)", models.FormatINR(minPaise), models.FormatINR(maxPaise))
}

func replyDepositOutOfRange(minPaise, maxPaise int64) string {
	return fmt.Sprintf("Deposits must be between %s and %s. How much?", models.FormatINR(minPaise), models.FormatINR(maxPaise))
}

func replyPaymentInstructions(amountPaise int64, payeeUPI string) string {
	return fmt.Sprintf("Pay %s to UPI ID %s, then send me the payment screenshot here. I'll credit your wallet once I've checked it.",
		models.FormatINR(amountPaise), payeeUPI)
}

func replySendPaymentScreenshot() string {
	return "I'm waiting for your payment screenshot. Send it as an image, or say \"cancel\"."
}

func replyNoPendingPayment() string {
	return "I don't have an open payment request for you. Say \"add money\" to start one."
}

func replyPaymentCredited(creditPaise, balancePaise int64, partial bool) string {
	if partial {
		return fmt.Sprintf("The screenshot shows a different amount than requested, so I credited what you actually paid: %s. New balance: %s.",
			models.FormatINR(creditPaise), models.FormatINR(balancePaise))
	}
	return fmt.Sprintf("Payment confirmed! %s added. New balance: %s.", models.FormatINR(creditPaise), models.FormatINR(balancePaise))
}

func replyPaymentManualReview() string {
	return "I couldn't verify that payment automatically. It's been sent for manual review - we'll get back to you soon."
}

func replyPaymentRejected() string {
	return "That screenshot didn't check out (stale, failed, or sent to the wrong account). No credit was made. If you think this is wrong, contact support."
}

// withdrawal

func replyWithdrawalBlocked(active int) string {
	return fmt.Sprintf("You have %d active challenge(s). Withdrawals open up once they're settled - your staked money rides on them!", active)
}

func replyNothingToWithdraw() string {
	return "Your balance is empty, nothing to withdraw."
}

func replyAskWithdrawAmount(balancePaise int64) string {
	return fmt.Sprintf("You can withdraw up to %s. How much? (or \"all\")", models.FormatINR(balancePaise))
}

func replyAskUPI() string {
	return "Which UPI ID should I pay out to?"
}

func replyConfirmWithdrawal(amountPaise int64, payoutUPI string) string {
	return fmt.Sprintf("Withdraw %s to %s? (yes/no)", models.FormatINR(amountPaise), payoutUPI)
}

func replyWithdrawalCancelled() string {
	return "Withdrawal cancelled."
}

func replyWithdrawalQueued(amountPaise int64) string {
	return fmt.Sprintf("Done - %s is queued for payout. It usually lands within 24 hours.", models.FormatINR(amountPaise))
}
