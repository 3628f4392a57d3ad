package llm

import "fmt"

// Prompt builders for every inference call the simulation makes. The
// wording is part of the behavior contract: the JSON shapes named here are
// what the extraction layer expects back.

type DecisionPromptParams struct {
	Name               string
	Age                int
	Occupation         string
	Personality        string
	CurrentLocation    string
	CurrentTime        string
	WorkHoursToday     float64
	Balance            float64
	Hunger             float64
	Fatigue            float64
	Social             float64
	Entertainment      float64
	RecentMemories     string
	Surroundings       string
	AvailableLocations string
}

func DecisionPrompt(p DecisionPromptParams) string {
	return fmt.Sprintf(`你是一个生活在虚拟小镇的居民。

## 你的身份
- 姓名：%s
- 年龄：%d岁
- 职业：%s
- 性格特点：%s

## 你的当前状态
- 位置：%s
- 当前时间：%s
- 今日已工作：%.1f 小时
- 账户余额：%.2f 元

## 你的需求状态（0-100，越高越紧迫）
- 饥饿程度：%.0f
- 疲劳程度：%.0f
- 社交需求：%.0f
- 娱乐需求：%.0f

## 你的近期记忆
%s

## 你周围的情况
%s

## 小镇可去的地点（只能选择以下地点）
%s

## 可选的行动
1. MOVE: 移动到某个地点（目标必须从上面的地点列表选择）
2. WORK: 工作（如果在工作地点）
3. EAT: 吃饭（如果在餐厅/咖啡馆）
4. REST: 休息
5. CHAT: 与附近的人交谈
6. SHOP: 购物（如果在超市/商场）
7. IDLE: 闲逛/发呆

## 任务
根据你的身份、当前状态、需求和周围环境，决定接下来要做什么。
像一个真实的人一样思考和决策，不要机械地只看数值。
**重要：如果选择MOVE，target必须是上面地点列表中的完整名称**

请按以下JSON格式回答：
{
    "thinking": "你当前的想法和决策理由（1-2句话）",
    "action": "行动类型（如：MOVE/WORK/EAT/REST/CHAT/SHOP/IDLE）",
    "target": "行动目标（地点名称必须从列表中选择，交谈对象用名字）",
    "reason": "简短说明为什么这样决定"
}`,
		p.Name, p.Age, p.Occupation, p.Personality,
		p.CurrentLocation, p.CurrentTime, p.WorkHoursToday, p.Balance,
		p.Hunger, p.Fatigue, p.Social, p.Entertainment,
		p.RecentMemories, p.Surroundings, p.AvailableLocations)
}

func ShouldReactPrompt(agentName, currentActivity, perception, currentPlan string) string {
	return fmt.Sprintf(`%s 正在 %s。

## 当前观察到的情况
%s

## %s 的当前计划
%s

## 任务
判断 %s 是否应该对观察到的情况做出反应，还是继续当前的活动。

考虑因素：
- 观察到的事情是否紧急或重要？
- 是否有人在叫 %s 或等待回应？
- 打断当前活动的代价有多大？
- %s 的性格会如何影响这个决定？

请以JSON格式回答：
{
    "should_react": true或false,
    "reaction_type": "continue"（继续当前活动）| "interrupt"（中断去处理）| "note"（记住但继续）,
    "reaction": "如果要反应，描述具体反应内容",
    "reason": "做出这个决定的原因"
}`, agentName, currentActivity, perception, agentName, currentPlan,
		agentName, agentName, agentName)
}

func ReflectionQuestionsPrompt(agentName, memories string) string {
	return fmt.Sprintf(`Given only the information above, what are 3 most salient
high-level questions we can answer about the subjects in the statements?

Recent memories of %s:
%s

Output exactly 3 questions, one per line, without numbering.`, agentName, memories)
}

func ReflectionInsightPrompt(agentName, question, relevantMemories string) string {
	return fmt.Sprintf(`%s is reflecting on their recent experiences.

Question: %s

Relevant memories:
%s

Based on the memories above, what is a high-level insight or conclusion that %s
might draw? The insight should be about %s themselves or their relationships.

Respond with a single insight statement in Chinese, starting with "%s" as the subject.`,
		agentName, question, relevantMemories, agentName, agentName, agentName)
}

type DailyPlanPromptParams struct {
	Name         string
	Age          int
	Occupation   string
	Personality  string
	Date         string
	Weekday      string
	HomeLocation string
	WorkLocation string
	Balance      float64
}

func DailyPlanPrompt(p DailyPlanPromptParams) string {
	return fmt.Sprintf(`你是 %s，%d 岁，职业是 %s。

## 你的性格特点
%s

## 今日日期
%s（%s）

## 你的生活情况
- 家的位置：%s
- 工作地点：%s
- 当前余额：%.2f 元

## 任务
为今天制定一个大致的日程安排（从早上6点到晚上12点）。
考虑你的职业、性格和生活习惯，安排4-6个主要时间块。

请以JSON格式回答：
{
    "plan": [
        {"start": "06:00", "end": "07:00", "activity": "起床洗漱", "location": "家"},
        {"start": "07:00", "end": "08:00", "activity": "吃早餐", "location": "家或咖啡馆"},
        ...
    ]
}`, p.Name, p.Age, p.Occupation, p.Personality, p.Date, p.Weekday,
		p.HomeLocation, p.WorkLocation, p.Balance)
}

func HourlyDecomposePrompt(start, end, activity, location string) string {
	return fmt.Sprintf(`将以下时间块分解为更具体的小时级活动。

时间块：%s - %s
活动：%s
地点：%s

请分解为具体的1小时内的活动安排，以JSON格式回答：
{
    "tasks": [
        {"start": "%s", "end": "XX:XX", "task": "具体任务", "location": "具体地点"},
        ...
    ]
}`, start, end, activity, location, start)
}

func TaskDecomposePrompt(start, end, activity string) string {
	return fmt.Sprintf(`将以下小时活动分解为5-15分钟的具体任务。

时间：%s - %s
活动：%s

请分解为更细粒度的任务，以JSON格式回答：
{
    "micro_tasks": [
        {"start": "%s", "duration_minutes": 10, "task": "具体动作"},
        ...
    ]
}`, start, end, activity, start)
}

func ReplanPrompt(agentName, whatHappened, currentTime, remainingPlan string) string {
	return fmt.Sprintf(`%s 刚刚 %s，需要重新规划剩余时间。

## 当前时间
%s

## 原定计划（剩余部分）
%s

## 任务
根据刚才发生的事情，重新规划从现在到今天结束的活动安排。

请以JSON格式回答：
{
    "new_plan": [
        {"start": "%s", "end": "XX:XX", "activity": "活动", "location": "地点"},
        ...
    ]
}`, agentName, whatHappened, currentTime, remainingPlan, currentTime)
}

func ImportanceRatingPrompt(content string) string {
	return fmt.Sprintf(`On the scale of 1 to 10, where 1 is purely mundane
(e.g., brushing teeth, making bed, routine commute) and 10 is extremely
poignant (e.g., a break up, getting promoted, death of a loved one), rate the
likely poignancy of the following piece of memory.

Memory: %s

Respond with ONLY a single integer from 1 to 10, nothing else.`, content)
}
