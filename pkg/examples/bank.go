package examples

import "github.com/VinayJogani14/Supply-Chain-Management/pkg/common"

// curated is the analyst question bank of the supply-chain dashboard.
var curated = []common.Question{
	{
		ID:       "customer-journey-evolution-1",
		Category: "Customer Lifecycle & Behavior",
		Section:  "Customer Journey Evolution",
		Question: "How does the average cart size evolve over a customer's lifetime (by order number)?",
		Query:    `// Step 0: Match all orders (even empty ones)
MATCH (u:User)-[:ORDERED]->(o:Order)
OPTIONAL MATCH (o)-[:CONTAINS]->(p:Product)
WITH u.user_id AS userId, o.order_number AS orderNum, count(p) AS cartSize
ORDER BY userId, orderNum

// Step 1: Collect and split orders correctly
WITH userId, collect({orderNum: orderNum, cartSize: cartSize}) AS orders
WITH userId, size(orders) AS totalOrders,
    CASE
    WHEN size(orders) % 2 = 0 THEN size(orders) / 2  // even → exact half
    ELSE floor(size(orders) / 2)                     // odd → middle in second half
    END AS splitIndex,
    orders

WITH userId, totalOrders,
    orders[..splitIndex] AS firstHalf,
    orders[splitIndex..] AS secondHalf,
    orders AS allOrders

// Step 2: Compute average cart sizes
WITH userId, totalOrders,
    CASE WHEN size(firstHalf) > 0 THEN reduce(s = 0.0, o IN firstHalf | s + o.cartSize) / size(firstHalf) ELSE 0.0 END AS avgCartSizeFirstHalf,
    CASE WHEN size(secondHalf) > 0 THEN reduce(s = 0.0, o IN secondHalf | s + o.cartSize) / size(secondHalf) ELSE 0.0 END AS avgCartSizeSecondHalf,
    CASE WHEN size(allOrders) > 0 THEN reduce(s = 0.0, o IN allOrders | s + o.cartSize) / size(allOrders) ELSE 0.0 END AS avgCartSizeAll

// Step 3: % change and behavior tag
WITH userId, totalOrders,
    round(avgCartSizeFirstHalf, 2) AS avgFirst,
    round(avgCartSizeSecondHalf, 2) AS avgSecond,
    round(avgCartSizeAll, 2) AS avgAll,
    CASE
    WHEN avgCartSizeFirstHalf <> 0
    THEN round(((avgCartSizeSecondHalf - avgCartSizeFirstHalf) / avgCartSizeFirstHalf) * 100, 2)
    ELSE 0
    END AS percentChange

RETURN userId, totalOrders,
    avgFirst AS AvgCartSize_FirstHalf,
    avgSecond AS AvgCartSize_SecondHalf,
    avgAll AS AvgCartSize_All,
    percentChange,
    CASE
        WHEN percentChange > 5 THEN "GROWING"
        WHEN percentChange < -5 THEN "DECLINING"
        ELSE "STABLE"
    END AS CartBehavior
ORDER BY percentChange DESC`,
	},
	{
		ID:       "customer-journey-evolution-2",
		Category: "Customer Lifecycle & Behavior",
		Section:  "Customer Journey Evolution",
		Question: "What's the typical progression of departments that new customers explore over their first 5 orders?",
		Query:    `MATCH (u:User)-[:ORDERED]->(o:Order)-[:CONTAINS]->(p:Product)-[:IN_DEPARTMENT]->(d:Department)
WHERE o.order_number <= 5
WITH o.order_number AS orderNum, d.department AS departmentName, count(*) AS freq
RETURN orderNum, departmentName, freq
ORDER BY orderNum, freq DESC`,
	},
	{
		ID:       "customer-journey-evolution-3",
		Category: "Customer Lifecycle & Behavior",
		Section:  "Customer Journey Evolution",
		Question: "How many aisles do new clients usually browse throughout their first 5 orders?",
		Query:    `MATCH (:User)-[:ORDERED]->(o:Order)-[:CONTAINS]->(p:Product)-[:IN_AISLE]->(a:Aisle)
WHERE o.order_number <= 5
RETURN a.aisle AS aisleName, count(*) AS frequency
ORDER BY frequency DESC`,
	},
	{
		ID:       "customer-journey-evolution-4",
		Category: "Customer Lifecycle & Behavior",
		Section:  "Customer Journey Evolution",
		Question: "How does order hour preference evolve for departments over time?",
		Query:    `MATCH (:User)-[:ORDERED]->(o:Order)-[:CONTAINS]->(p:Product)-[:IN_DEPARTMENT]->(d:Department)
WHERE o.order_hour_of_day IS NOT NULL
WITH o.order_hour_of_day AS hour, d.department AS department, count(*) AS freq
RETURN hour, department, freq
ORDER BY hour, freq DESC`,
	},
	{
		ID:       "customer-journey-evolution-5",
		Category: "Customer Lifecycle & Behavior",
		Section:  "Customer Journey Evolution",
		Question: "How does customer/basket share vary across product categories over time?",
		Query:    `// Match orders and link to departments via products
MATCH (o:Order)-[:CONTAINS]->(p:Product)-[:IN_DEPARTMENT]->(d:Department)
WHERE o.order_dow IS NOT NULL

// Count products by department per day
WITH o.order_dow AS dayOfWeek, d.department AS department, count(*) AS deptCount

// Calculate total items ordered that day
WITH dayOfWeek, department, deptCount
WITH dayOfWeek, collect({dept: department, count: deptCount}) AS deptStats

UNWIND deptStats AS entry
WITH dayOfWeek, entry.dept AS department, entry.count AS deptCount,
    reduce(total = 0, d IN deptStats | total + d.count) AS totalCount

// Calculate share
RETURN dayOfWeek, department, round(toFloat(deptCount) / totalCount * 100, 2) AS basketSharePct
ORDER BY dayOfWeek, basketSharePct DESC`,
	},
	{
		ID:       "customer-retention-segmentation-1",
		Category: "Customer Lifecycle & Behavior",
		Section:  "Customer Retention & Segmentation",
		Question: "How does customer retention vary over time based on their preferred shopping department?",
		Query:    `// Step 1: Determine each user's preferred department
MATCH (u:User)-[:ORDERED]->(:Order)-[:CONTAINS]->(p:Product)-[:IN_DEPARTMENT]->(d:Department)
WITH u.user_id AS userId, d.department AS dept, count(*) AS freq
WITH userId, collect({dept: dept, freq: freq}) AS deptFreqs
UNWIND deptFreqs AS df
WITH userId, df.dept AS dept, df.freq AS freq
ORDER BY userId, freq DESC
WITH userId, collect(dept)[0] AS favoriteDept

// Step 2: Track retention by order number
MATCH (u:User {user_id: userId})-[:ORDERED]->(o:Order)
WITH favoriteDept AS departmentSegment, o.order_number AS orderNum, u.user_id AS uid
WITH departmentSegment, orderNum, count(DISTINCT uid) AS customers

// Step 3: Remove duplicate [orderNum, customers] for each departmentSegment
WITH departmentSegment, customers, min(orderNum) AS orderNum
RETURN departmentSegment, orderNum, customers
ORDER BY departmentSegment, orderNum`,
	},
	{
		ID:       "customer-retention-segmentation-2",
		Category: "Customer Lifecycle & Behavior",
		Section:  "Customer Retention & Segmentation",
		Question: "Which products play a central role in the early purchasing patterns of retained customers?",
		Query:    `// Step 1: Get early products for retained users (5+ orders)
MATCH (u:User)-[:ORDERED]->(o:Order)
WITH u, count(o) AS totalOrders
WHERE totalOrders >= 5
MATCH (u)-[:ORDERED]->(o:Order)-[:CONTAINS]->(p:Product)
WHERE o.order_number <= 3
WITH collect(DISTINCT id(p)) AS seedProducts

// Step 2: Run personalized PageRank
CALL gds.pageRank.stream('ProductCoPurchase', {
    sourceNodes: seedProducts,
    maxIterations: 50,
    dampingFactor: 0.85
})
YIELD nodeId, score
WITH gds.util.asNode(nodeId).name AS productName, round(score, 4) AS pageRankScore
RETURN productName, pageRankScore
ORDER BY pageRankScore DESC
LIMIT 20`,
	},
	{
		ID:       "customer-retention-segmentation-3",
		Category: "Customer Lifecycle & Behavior",
		Section:  "Customer Retention & Segmentation",
		Question: "Can we identify distinct customer segments based on ordering day/time patterns?",
		Query:    `MATCH (u:User)-[:ORDERED]->(o:Order)
WHERE o.order_hour_of_day IS NOT NULL
WITH u.user_id AS userId, avg(o.order_hour_of_day) AS avgHour
WITH userId,
    CASE
        WHEN avgHour < 6 THEN 'Overnight'
        WHEN avgHour < 12 THEN 'Morning'
        WHEN avgHour < 18 THEN 'Afternoon'
        ELSE 'Evening'
    END AS timeSegment
RETURN timeSegment, count(*) AS userCount
ORDER BY userCount DESC`,
	},
	{
		ID:       "purchase-pattern-transitions-1",
		Category: "Customer Lifecycle & Behavior",
		Section:  "Purchase Pattern Transitions",
		Question: "Which products are most frequently transitioned into by loyal customers?",
		Query:    `// Step 1: Find users who have placed more than 5 orders
MATCH (u:User)-[:ORDERED]->(o:Order)
WITH u, count(o) AS totalOrders
WHERE totalOrders > 5

// Step 2: For each product the user ordered, count how many of their orders it appeared in
MATCH (u)-[:ORDERED]->(o2:Order)-[:CONTAINS]->(p:Product)
WITH u.user_id AS userId, p.name AS productName, count(DISTINCT o2) AS productOrderCount, totalOrders
WHERE toFloat(productOrderCount) / totalOrders >= 0.8

// Step 3: Aggregate the count of such users per product
RETURN
productName,
count(DISTINCT userId) AS retainedUsers
ORDER BY retainedUsers DESC
LIMIT 20`,
	},
	{
		ID:       "purchase-pattern-transitions-2",
		Category: "Customer Lifecycle & Behavior",
		Section:  "Purchase Pattern Transitions",
		Question: "Which products serve as 'gateway purchases' that lead to exploration of new departments?",
		Query:    `// Step 1: Identify each user's first order and departments in it
MATCH (u:User)-[:ORDERED]->(firstOrder:Order)-[:CONTAINS]->(firstProd:Product)-[:IN_DEPARTMENT]->(firstDept:Department)
WHERE firstOrder.order_number = 1
WITH u.user_id AS userId, firstProd.name AS gatewayProduct, collect(DISTINCT firstDept.department) AS initialDepts

// Step 2: Find all later products from new departments
MATCH (u:User {user_id: userId})-[:ORDERED]->(laterOrder:Order)-[:CONTAINS]->(laterProd:Product)-[:IN_DEPARTMENT]->(laterDept:Department)
WHERE laterOrder.order_number > 1 AND NOT laterDept.department IN initialDepts

// Step 3: Count how many new departments were reached via the gateway product
RETURN
gatewayProduct,
count(DISTINCT laterDept.department) AS newDeptCount
ORDER BY newDeptCount DESC
LIMIT 50`,
	},
	{
		ID:       "reorder-dynamics-1",
		Category: "Reorder Behavior & Loyalty Drivers",
		Section:  "Reorder Dynamics",
		Question: "Are customers reordering items popular with others in their first order?",
		Query:    `// Step 1: Calculate global popularity of each product
MATCH (p:Product)
OPTIONAL MATCH (:Order)-[:CONTAINS]->(p)
WITH p, count(*) AS totalOrders

// Step 2: Calculate how often it's included in users' first order
OPTIONAL MATCH (:User)-[:ORDERED]->(o:Order {order_number: 1})-[:CONTAINS]->(p)
WITH p.name AS productName, totalOrders, count(o) AS firstOrderCount
WHERE totalOrders > 10
RETURN
productName,
totalOrders,
firstOrderCount,
round(toFloat(firstOrderCount) / totalOrders * 100, 2) AS percentInFirstOrders
ORDER BY percentInFirstOrders DESC
LIMIT 20`,
	},
	{
		ID:       "reorder-dynamics-2",
		Category: "Reorder Behavior & Loyalty Drivers",
		Section:  "Reorder Dynamics",
		Question: "How does reorder frequency vary with days_since_prior_order for frequently purchased items?",
		Query:    `// Step 1: Get products with high reorder volume
MATCH (:Order)-[r:CONTAINS]->(p:Product)
WHERE r.reordered = 1
WITH p, count(*) AS reorderCount
WHERE reorderCount > 20

// Step 2: Analyze reorder gap
MATCH (o:Order)-[r:CONTAINS]->(p)
WHERE r.reordered = 1 AND o.days_since_prior_order IS NOT NULL
WITH p.name AS productName, avg(o.days_since_prior_order) AS avgGap, count(*) AS totalReorders
RETURN productName, totalReorders, round(avgGap, 2) AS avgDaysBetweenReorders
ORDER BY avgDaysBetweenReorders ASC
LIMIT 20`,
	},
	{
		ID:       "reorder-dynamics-3",
		Category: "Reorder Behavior & Loyalty Drivers",
		Section:  "Reorder Dynamics",
		Question: "What's the relationship between a product's department and reorder likelihood?",
		Query:    `MATCH (:Order)-[r:CONTAINS]->(p:Product)-[:IN_DEPARTMENT]->(d:Department)
WHERE r.reordered IS NOT NULL
WITH d.department AS department,
    count(*) AS totalOrders,
    count(CASE WHEN r.reordered = 1 THEN 1 END) AS reorderCount
WHERE totalOrders > 20
RETURN
department,
totalOrders,
reorderCount,
round(toFloat(reorderCount) / totalOrders * 100, 2) AS reorderRatePct
ORDER BY reorderRatePct DESC
LIMIT 21`,
	},
	{
		ID:       "promotions-reorder-uplift-1",
		Category: "Reorder Behavior & Loyalty Drivers",
		Section:  "Promotions & Reorder Uplift",
		Question: "Which products are most often added to cart in the first 3 positions?",
		Query:    `MATCH (:Order)-[r:CONTAINS]->(p:Product)
WHERE r.add_to_cart_order IN [1, 2, 3]
WITH p.name AS productName, count(*) AS addCount
RETURN productName, addCount
ORDER BY addCount DESC
LIMIT 20`,
	},
	{
		ID:       "promotions-reorder-uplift-2",
		Category: "Reorder Behavior & Loyalty Drivers",
		Section:  "Promotions & Reorder Uplift",
		Question: "Do users prefer reordering familiar products early or exploring new ones in the first 3 cart additions?",
		Query:    `MATCH (:Order)-[r:CONTAINS]->(p:Product)
WHERE r.add_to_cart_order IN [1, 2, 3]
WITH
CASE WHEN r.reordered = 1 THEN 'Reordered' ELSE 'New' END AS itemType,
count(*) AS countItems
RETURN itemType, countItems
ORDER BY countItems DESC`,
	},
	{
		ID:       "promotions-reorder-uplift-3",
		Category: "Reorder Behavior & Loyalty Drivers",
		Section:  "Promotions & Reorder Uplift",
		Question: "Which product categories have the highest uplift in sales?",
		Query:    `// Step 1: Get total orders per user
MATCH (u:User)-[:ORDERED]->(o:Order)
WITH u.user_id AS userId, count(o) AS totalOrders
WITH userId, totalOrders,
    CASE
        WHEN totalOrders % 2 = 0 THEN totalOrders / 2
        ELSE toInteger(floor(totalOrders / 2.0))
    END AS earlyLimit

// Step 2: For each user-product pair, count early vs late purchases
MATCH (u:User)-[:ORDERED]->(o:Order)-[:CONTAINS]->(p:Product)
WITH u.user_id AS userId, o.order_number AS orderNum, p.name AS product, earlyLimit
WITH userId, product, earlyLimit,
    count(CASE WHEN orderNum <= earlyLimit THEN 1 END) AS earlyPurchases,
    count(CASE WHEN orderNum > earlyLimit THEN 1 END) AS latePurchases

// Step 3: Compute per-user uplift and aggregate
WITH product,
    round(avg(toFloat(latePurchases - earlyPurchases) /
        CASE WHEN earlyPurchases = 0 THEN 1 ELSE earlyPurchases END) * 100, 2) AS avgUpliftPct,
    sum(earlyPurchases) AS totalEarlyPurchases,
    sum(latePurchases) AS totalLatePurchases

RETURN product, totalEarlyPurchases, totalLatePurchases, avgUpliftPct
ORDER BY avgUpliftPct DESC
LIMIT 20`,
	},
	{
		ID:       "co-purchase-patterns-product-graphs-1",
		Category: "Product Affinity, Graphs & Recommendations",
		Section:  "Co-Purchase Patterns & Product Graphs",
		Question: "What are the top product pairings based on co-purchase frequency?",
		Query:    `MATCH (p1:Product)-[r:BOUGHTWITH]->(p2:Product)
WHERE id(p1) < id(p2)  // Avoid duplicate pairs
RETURN
p1.name AS productA,
p2.name AS productB,
r.weight AS timesBoughtTogether
ORDER BY timesBoughtTogether DESC
LIMIT 20`,
	},
	{
		ID:       "co-purchase-patterns-product-graphs-2",
		Category: "Product Affinity, Graphs & Recommendations",
		Section:  "Co-Purchase Patterns & Product Graphs",
		Question: "What products have the highest cross-department purchase correlation?",
		Query:    `CALL gds.nodeSimilarity.stream('ProductCoPurchase')
YIELD node1, node2, similarity
WITH gds.util.asNode(node1) AS p1, gds.util.asNode(node2) AS p2, similarity
WHERE similarity > 0.85 AND p1.product_id <> p2.product_id
MATCH (p1)-[:IN_DEPARTMENT]->(d1:Department), (p2)-[:IN_DEPARTMENT]->(d2:Department)
WHERE d1.department <> d2.department
RETURN
p1.name AS productA, d1.department AS deptA,
p2.name AS productB, d2.department AS deptB,
round(similarity, 3) AS similarityScore
ORDER BY similarityScore
LIMIT 50`,
	},
	{
		ID:       "co-purchase-patterns-product-graphs-3",
		Category: "Product Affinity, Graphs & Recommendations",
		Section:  "Co-Purchase Patterns & Product Graphs",
		Question: "Which items act as a 'bridge' between different product communities?",
		Query:    `// Step 1: Find products with both betweenness and community assigned
MATCH (p:Product)
WHERE p.betweenness IS NOT NULL AND p.community_louvain IS NOT NULL

// Step 2: Check if product has neighbors from multiple communities
MATCH (p)-[:BOUGHTWITH]-(n:Product)
WHERE n.community_louvain IS NOT NULL AND n.community_louvain <> p.community_louvain

// Step 3: Return products that connect to different communities
WITH DISTINCT p, p.community_louvain AS sourceCommunity, p.betweenness AS score

RETURN
p.product_id AS productId,
p.name AS productName,
sourceCommunity,
round(score, 2) AS betweennessScore
ORDER BY betweennessScore DESC
LIMIT 20`,
	},
	{
		ID:       "community-detection-recommendation-modeling-1",
		Category: "Product Affinity, Graphs & Recommendations",
		Section:  "Community Detection & Recommendation Modeling",
		Question: "Do high-centrality products (high betweenness) make better recommendations than low-centrality ones?",
		Query:    `// Categorize by centrality and count purchases
MATCH (p:Product)
WHERE p.betweenness IS NOT NULL
WITH p,
    CASE
        WHEN p.betweenness >= 1000 THEN 'High Centrality'
        ELSE 'Low Centrality'
    END AS centralityGroup
MATCH (:Order)-[:CONTAINS]->(p)
RETURN centralityGroup, count(*) AS totalOrders
ORDER BY totalOrders DESC`,
	},
	{
		ID:       "product-lifecycle-decline-1",
		Category: "Demand Trends & Seasonality",
		Section:  "Product Lifecycle & Decline",
		Question: "Which products show the sharpest drop in demand over time?",
		Query:    `// Step 1: For each user, find total orders
MATCH (u:User)-[:ORDERED]->(o:Order)
WITH u.user_id AS userId, count(o) AS totalOrders

// Step 2: Attach each order's products along with order number
MATCH (u:User {user_id: userId})-[:ORDERED]->(o:Order)-[:CONTAINS]->(p:Product)
WITH userId, p.name AS productName, o.order_number AS orderNum, totalOrders

// Step 3: Define first half and second half dynamically
WITH userId, productName, orderNum, totalOrders,
    CASE
    WHEN totalOrders % 2 = 0 THEN totalOrders / 2   // even split
    ELSE (totalOrders - 1) / 2                      // odd split: lesser half
    END AS firstHalfSize

// Step 4: Classify purchases into firstHalf or secondHalf
WITH userId, productName,
    CASE WHEN orderNum <= firstHalfSize THEN 'firstHalf' ELSE 'secondHalf' END AS half

// Step 5: Aggregate for each product whether it was bought in first or second half
WITH productName, collect(DISTINCT half) AS halves

// Step 6: Only keep products bought ONLY in first half (never in second)
WHERE NOT 'secondHalf' IN halves

// Step 7: Count how many customers showed this behavior for each product
RETURN productName`,
	},
	{
		ID:       "seasonal-effects-1",
		Category: "Demand Trends & Seasonality",
		Section:  "Seasonal Effects",
		Question: "Which product categories exhibit strong day-of-week effects?",
		Query:    `MATCH (o:Order)-[:CONTAINS]->(p:Product)-[:IN_DEPARTMENT]->(d:Department)
WHERE o.order_dow IS NOT NULL
WITH d.department AS department, o.order_dow AS dayOfWeek, COUNT(*) AS orderCount
WITH department, collect(orderCount) AS weeklyPattern,
    min(orderCount) AS minCount, max(orderCount) AS maxCount
WITH department, weeklyPattern,
    round((toFloat(maxCount - minCount) / maxCount) * 100, 2) AS volatilityPct
RETURN department, weeklyPattern, volatilityPct
ORDER BY volatilityPct DESC
LIMIT 20`,
	},
	{
		ID:       "seasonal-effects-2",
		Category: "Demand Trends & Seasonality",
		Section:  "Seasonal Effects",
		Question: "What is the day-of-week effect on order size across different product categories?",
		Query:    `// Step 1: Link orders to products and departments
MATCH (o:Order)-[:CONTAINS]->(p:Product)-[:IN_DEPARTMENT]->(d:Department)
WHERE o.order_dow IS NOT NULL

// Step 2: Count number of products per (order, department, day)
WITH o.order_id AS orderId, o.order_dow AS dayOfWeek, d.department AS department, count(p) AS productCount

// Step 3: Get average cart size (order size) per department per day
WITH department, dayOfWeek, avg(productCount) AS avgCartSize

// Step 4: Collect all day values into a list for each department
WITH department, collect({day: dayOfWeek, cartSize: avgCartSize}) AS cartStats

// Step 5: Determine highest and lowest days per department
WITH department,
    reduce(maxDay = cartStats[0], entry IN cartStats |
        CASE WHEN entry.cartSize > maxDay.cartSize THEN entry ELSE maxDay END) AS highest,
    reduce(minDay = cartStats[0], entry IN cartStats |
        CASE WHEN entry.cartSize < minDay.cartSize THEN entry ELSE minDay END) AS lowest

RETURN department,
    CASE highest.day
        WHEN 0 THEN "Sunday"
        WHEN 1 THEN "Monday"
        WHEN 2 THEN "Tuesday"
        WHEN 3 THEN "Wednesday"
        WHEN 4 THEN "Thursday"
        WHEN 5 THEN "Friday"
        WHEN 6 THEN "Saturday"
    END AS highestCartDay,
    round(highest.cartSize, 2) AS highestAvgCartSize,
    CASE lowest.day
        WHEN 0 THEN "Sunday"
        WHEN 1 THEN "Monday"
        WHEN 2 THEN "Tuesday"
        WHEN 3 THEN "Wednesday"
        WHEN 4 THEN "Thursday"
        WHEN 5 THEN "Friday"
        WHEN 6 THEN "Saturday"
    END AS lowestCartDay,
    round(lowest.cartSize, 2) AS lowestAvgCartSize
ORDER BY department`,
	},
	{
		ID:       "delivery-success-factors-1",
		Category: "Supply Chain & Delivery Performance",
		Section:  "Delivery Success Factors",
		Question: "Which suppliers have the highest delivery success rates?",
		Query:    `// Step 1: Parse dates properly
MATCH (s:Supplier)-[:SENDS]->(sh:Shipment)
WHERE sh.expected_delivery_date IS NOT NULL AND sh.actual_delivery_date IS NOT NULL

WITH
s, sh,
split(sh.expected_delivery_date, "/") AS expectedParts,
split(sh.actual_delivery_date, "/") AS actualParts

WITH
s,
date({year: toInteger('20' + expectedParts[2]), month: toInteger(expectedParts[1]), day: toInteger(expectedParts[0])}) AS expectedDate,
date({year: toInteger('20' + actualParts[2]), month: toInteger(actualParts[1]), day: toInteger(actualParts[0])}) AS actualDate

WITH
s.supplier_name AS supplier,
CASE WHEN actualDate <= expectedDate THEN 1 ELSE 0 END AS onTimeFlag

// Step 2: Aggregate and filter only perfect suppliers
WITH supplier,
    sum(onTimeFlag) AS onTimeDeliveries,
    count(*) AS totalDeliveries
WHERE onTimeDeliveries = totalDeliveries

RETURN supplier
ORDER BY supplier`,
	},
	{
		ID:       "delivery-success-factors-2",
		Category: "Supply Chain & Delivery Performance",
		Section:  "Delivery Success Factors",
		Question: "What proportion of shipments are in transit, delivered and dispatched?",
		Query:    `// Step 1: Match all shipments that have a status
MATCH (sh:Shipment)
WHERE sh.status IS NOT NULL

// Step 2: Group by shipment status
RETURN
toLower(sh.status) AS shipmentStatus,
count(*) AS shipmentCount
ORDER BY shipmentCount DESC`,
	},
	{
		ID:       "efficiency-drivers-1",
		Category: "Supply Chain & Delivery Performance",
		Section:  "Efficiency Drivers",
		Question: "What is the average delivery delay (in days) for shipments by category?",
		Query:    `// Step 1: Match Shipments and Products
MATCH (p:Product)-[:SUPPLIED_BY]->(:Supplier)-[:SENDS]->(sh:Shipment)
MATCH (p)-[:IN_AISLE]->(a:Aisle)
WHERE sh.expected_delivery_date IS NOT NULL AND sh.actual_delivery_date IS NOT NULL

// Step 2: Parse dates and calculate delay
WITH
a.aisle AS aisleName,
split(sh.expected_delivery_date, "/") AS expParts,
split(sh.actual_delivery_date, "/") AS actParts
WITH
aisleName,
date({year: toInteger('20' + expParts[2]), month: toInteger(expParts[1]), day: toInteger(expParts[0])}) AS expDate,
date({year: toInteger('20' + actParts[2]), month: toInteger(actParts[1]), day: toInteger(actParts[0])}) AS actDate

WITH aisleName, duration.between(expDate, actDate).days AS delayDays
WHERE delayDays > 0  // only count late deliveries

// Step 3: Average delay per aisle
RETURN aisleName,
    round(avg(delayDays), 2) AS avgDelayDays,
    count(*) AS delayedShipments
ORDER BY avgDelayDays DESC`,
	},
	{
		ID:       "efficiency-drivers-2",
		Category: "Supply Chain & Delivery Performance",
		Section:  "Efficiency Drivers",
		Question: "How does product category mix affect on-time delivery?",
		Query:    `// Step 1: Match shipment and associated product categories
MATCH (p:Product)-[:SUPPLIED_BY]->(:Supplier)-[:SENDS]->(sh:Shipment)
MATCH (p)-[:IN_DEPARTMENT]->(d:Department)
WHERE sh.expected_delivery_date IS NOT NULL AND sh.actual_delivery_date IS NOT NULL

// Step 2: Parse dates
WITH
d.department AS departmentName,
split(sh.expected_delivery_date, "/") AS expParts,
split(sh.actual_delivery_date, "/") AS actParts
WITH
departmentName,
date({year: toInteger('20' + expParts[2]), month: toInteger(expParts[1]), day: toInteger(expParts[0])}) AS expDate,
date({year: toInteger('20' + actParts[2]), month: toInteger(actParts[1]), day: toInteger(actParts[0])}) AS actDate

WITH
departmentName,
CASE WHEN actDate <= expDate THEN "On-Time" ELSE "Delayed" END AS deliveryStatus

// Step 3: Aggregate per department
RETURN departmentName, deliveryStatus, count(*) AS shipmentCount
ORDER BY departmentName, deliveryStatus`,
	},
	{
		ID:       "efficiency-drivers-3",
		Category: "Supply Chain & Delivery Performance",
		Section:  "Efficiency Drivers",
		Question: "How does supply chain performance vary with seasonal demand fluctuations?",
		Query:    `// Step 1: Match shipments with shipment date
MATCH (p:Product)-[:SUPPLIED_BY]->(:Supplier)-[:SENDS]->(sh:Shipment)
WHERE sh.shipment_date IS NOT NULL
AND sh.expected_delivery_date IS NOT NULL
AND sh.actual_delivery_date IS NOT NULL

// Step 2: Parse dates
WITH
split(sh.shipment_date, "/") AS shipParts,
split(sh.expected_delivery_date, "/") AS expParts,
split(sh.actual_delivery_date, "/") AS actParts

WITH
date({year: toInteger('20' + shipParts[2]), month: toInteger(shipParts[1]), day: toInteger(shipParts[0])}) AS shipmentDate,
date({year: toInteger('20' + expParts[2]), month: toInteger(expParts[1]), day: toInteger(expParts[0])}) AS expDate,
date({year: toInteger('20' + actParts[2]), month: toInteger(actParts[1]), day: toInteger(actParts[0])}) AS actDate

WITH
shipmentDate.month AS shipmentMonth,
CASE WHEN actDate <= expDate THEN 1 ELSE 0 END AS onTimeFlag

// Step 3: Aggregate shipment performance per month
RETURN shipmentMonth,
    sum(onTimeFlag) AS onTimeDeliveries,
    count(*) AS totalShipments,
    round(toFloat(sum(onTimeFlag)) / count(*) * 100, 2) AS onTimeRatePct
ORDER BY shipmentMonth`,
	},
	{
		ID:       "priority-stocking-display-strategy-1",
		Category: "Performance Metrics & Sales KPIs",
		Section:  "Priority stocking & display strategy",
		Question: "Which products connect the widest variety of departments and have high co-purchase influence?",
		Query:    `MATCH (p:Product)
WHERE p.pageRank IS NOT NULL
MATCH (p)-[:BOUGHTWITH]-(p2:Product)
MATCH (p)-[:IN_DEPARTMENT]->(d1:Department),
    (p2)-[:IN_DEPARTMENT]->(d2:Department)
WHERE d1.department <> d2.department
WITH p, p.name AS productName, p.pageRank AS pageRankScore,
    collect(DISTINCT d2.department) AS connectedDepts
RETURN
p.product_id AS productId,
productName,
round(pageRankScore, 4) AS pageRank,
size(connectedDepts) AS crossDeptConnections
ORDER BY pageRank DESC, crossDeptConnections DESC
LIMIT 100`,
	},
	{
		ID:       "resource-allocation-and-marketing-focus-1",
		Category: "Performance Metrics & Sales KPIs",
		Section:  "Resource allocation and marketing focus",
		Question: "Which departments contribute most to overall order volume?",
		Query:    `// Step 1: Count number of products ordered per department
MATCH (:Order)-[:CONTAINS]->(p:Product)-[:IN_DEPARTMENT]->(d:Department)
WITH d.department AS department, COUNT(p) AS orderCount

// Step 2: Calculate total orders across all departments
WITH collect({department: department, orderCount: orderCount}) AS deptData
WITH deptData, reduce(total = 0, row IN deptData | total + row.orderCount) AS totalOrders
UNWIND deptData AS row

// Step 3: Compute % contribution of each department
RETURN
row.department AS department,
row.orderCount AS orderCount,
round(toFloat(row.orderCount) / totalOrders * 100, 2) AS pctOfTotalOrders
ORDER BY orderCount DESC
LIMIT 21`,
	},
}
