package world

type townPlace struct {
	id          string
	name        string
	kind        LocationKind
	pos         Position
	capacity    int
	activities  []ActivityKind
	hours       OpeningHours
	description string
}

// DefaultTown builds the stock town layout: a residential block plus the
// handful of public places the simulation needs for work, food, shopping
// and leisure. Callers that want a custom map build their own directory.
func DefaultTown() *LocationDirectory {
	places := []townPlace{
		{
			id: "apartments", name: "幸福公寓", kind: KindHome,
			pos: Position{X: 0, Y: 0}, capacity: 200,
			activities:  []ActivityKind{ActivitySleep, ActivityEat, ActivityRelax},
			hours:       AllDay,
			description: "小镇居民的公寓楼",
		},
		{
			id: "tech-office", name: "科技公司", kind: KindOffice,
			pos: Position{X: 40, Y: 10}, capacity: 80,
			activities:  []ActivityKind{ActivityWork, ActivityStudy},
			hours:       OpeningHours{OpenHour: 8, CloseHour: 20},
			description: "写字楼里的科技公司",
		},
		{
			id: "starlight-cafe", name: "星光咖啡馆", kind: KindCafe,
			pos: Position{X: 20, Y: 5}, capacity: 30,
			activities:  []ActivityKind{ActivityEat, ActivitySocialize, ActivityRelax, ActivityWork},
			hours:       OpeningHours{OpenHour: 7, CloseHour: 22},
			description: "街角的咖啡馆，常有人在这里聊天",
		},
		{
			id: "family-restaurant", name: "老王餐馆", kind: KindRestaurant,
			pos: Position{X: 25, Y: 15}, capacity: 40,
			activities:  []ActivityKind{ActivityEat, ActivitySocialize},
			hours:       OpeningHours{OpenHour: 6, CloseHour: 23},
			description: "家常菜馆，饭点很热闹",
		},
		{
			id: "supermarket", name: "城东超市", kind: KindShop,
			pos: Position{X: 30, Y: -10}, capacity: 60,
			activities:  []ActivityKind{ActivityShop},
			hours:       OpeningHours{OpenHour: 8, CloseHour: 22},
			description: "日用百货都能买到",
		},
		{
			id: "central-park", name: "中央公园", kind: KindPark,
			pos: Position{X: 10, Y: 30}, capacity: 300,
			activities:  []ActivityKind{ActivityRelax, ActivityExercise, ActivitySocialize},
			hours:       AllDay,
			description: "镇中心的公园，早晚都有人散步",
		},
		{
			id: "iron-gym", name: "力量健身房", kind: KindGym,
			pos: Position{X: 35, Y: 25}, capacity: 25,
			activities:  []ActivityKind{ActivityExercise},
			hours:       OpeningHours{OpenHour: 6, CloseHour: 23},
			description: "器械齐全的健身房",
		},
		{
			id: "night-bar", name: "夜色酒吧", kind: KindBar,
			pos: Position{X: 18, Y: -20}, capacity: 35,
			activities:  []ActivityKind{ActivitySocialize, ActivityRelax},
			hours:       OpeningHours{OpenHour: 18, CloseHour: 2},
			description: "晚上才开门的小酒吧",
		},
	}

	d := NewLocationDirectory()
	for _, p := range places {
		loc := NewLocation(p.id, p.name, p.kind, p.pos, p.capacity)
		loc.Activities = p.activities
		loc.Hours = p.hours
		loc.Description = p.description
		d.Add(loc)
	}
	return d
}
