package blog

// topicCategory groups the education calendar
type topicCategory struct {
	Name   string
	Topics []string
}

// calendar is ordered; the daily post picks topics by day of month over the flattened list.
var calendar = []topicCategory{
	{
		Name: "Technical Indicators",
		Topics: []string{
			"Bollinger Bands: Complete Guide to Volatility Trading",
			"MACD Indicator: Master the Momentum Oscillator",
			"RSI (Relative Strength Index): Overbought and Oversold Signals",
			"Moving Averages: Simple vs Exponential - Which to Use?",
			"Stochastic Oscillator: Timing Your Entries Perfectly",
			"Williams %R: Advanced Momentum Analysis",
			"ADX Indicator: Measuring Trend Strength",
			"Fibonacci Retracements: Golden Ratio in Trading",
		},
	},
	{
		Name: "Trading Strategies",
		Topics: []string{
			"Swing Trading Strategies: 5-Day to 2-Week Holds",
			"Day Trading Techniques: Intraday Profit Strategies",
			"Scalping Strategies: Quick Profits in Minutes",
			"Position Trading: Long-Term Market Analysis",
			"Breakout Trading: Catching the Big Moves",
			"Pullback Trading: Buying the Dips",
			"Range Trading: Profiting from Sideways Markets",
		},
	},
	{
		Name: "Market Analysis",
		Topics: []string{
			"Support and Resistance: Key Levels Every Trader Must Know",
			"Volume Analysis: The Hidden Market Indicator",
			"Market Psychology: Understanding Fear and Greed",
			"Price Action Trading: Reading Candlestick Patterns",
			"Chart Patterns: Head and Shoulders, Triangles, Flags",
			"Market Structure: Higher Highs, Lower Lows",
			"Trend Analysis: Identifying Market Direction",
		},
	},
	{
		Name: "Risk Management",
		Topics: []string{
			"Position Sizing: The Key to Long-Term Success",
			"Stop Loss Strategies: Protecting Your Capital",
			"Risk-Reward Ratios: The 1:2 Rule",
			"Portfolio Management: Diversification Strategies",
			"Money Management: Never Risk More Than 2%",
			"Drawdown Management: Surviving Losing Streaks",
		},
	},
	{
		Name: "Options Trading",
		Topics: []string{
			"Options Basics: Calls, Puts, and Strike Prices",
			"Implied Volatility: The Options Trader's Friend",
			"Options Strategies: Covered Calls and Protective Puts",
			"Iron Condors: Profiting from Sideways Markets",
			"Butterfly Spreads: Limited Risk, High Reward",
			"Options Greeks: Delta, Gamma, Theta, Vega",
		},
	},
}

// Topics returns the flattened education calendar in calendar order
func Topics() []string {
	var topics []string
	for _, category := range calendar {
		topics = append(topics, category.Topics...)
	}
	return topics
}

// TopicCategories returns the number of topics per category
func TopicCategories() map[string]int {
	counts := make(map[string]int, len(calendar))
	for _, category := range calendar {
		counts[category.Name] = len(category.Topics)
	}
	return counts
}

// TopicForDay returns the calendar topic for a day of the month
func TopicForDay(day int) string {
	topics := Topics()
	return topics[day%len(topics)]
}
